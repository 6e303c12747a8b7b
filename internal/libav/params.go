package libav

import (
	"github.com/asticode/go-astiav"

	"github.com/backmassage/vidsqueeze/internal/media"
)

// inputParams points at a stream of an open input. Output streams built
// from it copy the codec parameters as they are.
type inputParams struct {
	fc     *astiav.FormatContext
	stream *astiav.Stream
}

func (p *inputParams) Info() media.StreamInfo { return streamInfo(p.stream) }

// encoderParams points at an opened encoder context.
type encoderParams struct {
	cc   *astiav.CodecContext
	name string
}

func (p *encoderParams) Info() media.StreamInfo {
	return media.StreamInfo{
		Type:        media.MediaVideo,
		Codec:       p.name,
		TimeBase:    fromRational(p.cc.TimeBase()),
		FrameRate:   fromRational(p.cc.Framerate()),
		Width:       p.cc.Width(),
		Height:      p.cc.Height(),
		BitRate:     p.cc.BitRate(),
		PixelFormat: p.cc.PixelFormat().Name(),
	}
}

func streamInfo(s *astiav.Stream) media.StreamInfo {
	cp := s.CodecParameters()
	info := media.StreamInfo{
		Index:    s.Index(),
		Type:     mediaType(cp.MediaType()),
		Codec:    cp.CodecID().Name(),
		TimeBase: fromRational(s.TimeBase()),
		BitRate:  cp.BitRate(),
	}
	if info.Type == media.MediaVideo {
		info.FrameRate = fromRational(s.RFrameRate())
		info.Width = cp.Width()
		info.Height = cp.Height()
		info.PixelFormat = cp.PixelFormat().Name()
	}
	return info
}

func mediaType(t astiav.MediaType) media.MediaType {
	switch t {
	case astiav.MediaTypeVideo:
		return media.MediaVideo
	case astiav.MediaTypeAudio:
		return media.MediaAudio
	case astiav.MediaTypeSubtitle:
		return media.MediaSubtitle
	case astiav.MediaTypeData:
		return media.MediaData
	default:
		return media.MediaUnknown
	}
}

func fromRational(r astiav.Rational) media.Rational {
	return media.Rational{Num: r.Num(), Den: r.Den()}
}

func toRational(r media.Rational) astiav.Rational {
	return astiav.NewRational(r.Num, r.Den)
}
