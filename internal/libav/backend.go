// Package libav implements the media interfaces on top of FFmpeg's
// libavformat and libavcodec through go-astiav.
package libav

import (
	"github.com/asticode/go-astiav"

	"github.com/backmassage/vidsqueeze/internal/media"
)

// Backend opens inputs, outputs and encoders. The zero value is ready to use.
type Backend struct{}

var _ media.Backend = (*Backend)(nil)

// New returns a Backend.
func New() *Backend { return &Backend{} }

// HasEncoder reports whether an encoder called name is compiled in.
func (b *Backend) HasEncoder(name string) bool {
	return astiav.FindEncoderByName(name) != nil
}

// HasDecoder reports whether a decoder called name is compiled in.
func (b *Backend) HasDecoder(name string) bool {
	return astiav.FindDecoderByName(name) != nil
}

// HasMuxer reports whether a muxer can be guessed for a file with the
// given extension, with or without the leading dot.
func (b *Backend) HasMuxer(ext string) bool {
	if ext == "" {
		return false
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	fc, err := astiav.AllocOutputFormatContext(nil, "", "probe"+ext)
	if err != nil || fc == nil {
		return false
	}
	fc.Free()
	return true
}
