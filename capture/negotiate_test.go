package capture

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFormats() []FormatDesc {
	return []FormatDesc{
		{
			Index:   1,
			Subtype: SubtypeUncompressed,
			FourCC:  "NV12",
			Format:  FormatNV12,
			Frames: []FrameDesc{
				{Index: 1, Width: 1280, Height: 720, DefaultInterval: 333333},
				{Index: 2, Width: 640, Height: 480, DefaultInterval: 666666},
			},
		},
		{
			Index:   2,
			Subtype: SubtypeMJPEG,
			FourCC:  "MJPG",
			Format:  FormatMJPEG,
			Frames: []FrameDesc{
				{Index: 1, Width: 1920, Height: 1080, DefaultInterval: 333333},
			},
		},
		{
			Index:   3,
			Subtype: SubtypeFrameBased,
			FourCC:  "H264",
			Format:  FormatH264,
		},
	}
}

func TestSelectFirstDescriptors(t *testing.T) {
	sel, err := Select(testFormats(), Preference{})
	require.NoError(t, err)

	assert.Equal(t, 1, sel.Format.Index)
	require.NotNil(t, sel.Frame)
	assert.Equal(t, 1, sel.Frame.Index)
	assert.Equal(t, StreamRequest{Format: FormatNV12, Width: 1280, Height: 720, FPS: 30}, sel.Request)
	assert.Equal(t, FormatNV12, sel.TextureFormat)
}

func TestSelectFpsFromDefaultInterval(t *testing.T) {
	sel, err := Select(testFormats(), Preference{FrameIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, 640, sel.Request.Width)
	assert.Equal(t, 480, sel.Request.Height)
	assert.Equal(t, 15, sel.Request.FPS)
}

func TestSelectMJPEG(t *testing.T) {
	sel, err := Select(testFormats(), Preference{FormatIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, FormatMJPEG, sel.Request.Format)
	assert.Equal(t, FormatI420, sel.TextureFormat)
	assert.Equal(t, 1920, sel.Request.Width)
}

func TestSelectFrameBasedWithoutFrames(t *testing.T) {
	sel, err := Select(testFormats(), Preference{FormatIndex: 2, Width: 320, Height: 240, FPS: 5})
	require.NoError(t, err)
	assert.Nil(t, sel.Frame)
	assert.Equal(t, StreamRequest{Format: FormatH264, Width: 320, Height: 240, FPS: 5}, sel.Request)
	assert.Equal(t, FormatI420, sel.TextureFormat)
}

func TestSelectUnknownUncompressedIsNV12(t *testing.T) {
	formats := []FormatDesc{{Index: 1, Subtype: SubtypeUncompressed, FourCC: "XXXX"}}
	sel, err := Select(formats, Preference{})
	require.NoError(t, err)
	assert.Equal(t, FormatNV12, sel.Request.Format)
	assert.Equal(t, FormatNV12, sel.TextureFormat)
	assert.Equal(t, StreamRequest{Format: FormatNV12, Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}, sel.Request)
}

func TestSelectYUYVUsesPlanarTexture(t *testing.T) {
	formats := []FormatDesc{{Index: 1, Subtype: SubtypeUncompressed, FourCC: "YUYV", Format: FormatYUYV}}
	sel, err := Select(formats, Preference{})
	require.NoError(t, err)
	assert.Equal(t, FormatYUYV, sel.Request.Format)
	assert.Equal(t, FormatI420, sel.TextureFormat)
}

func TestSelectClampsIndices(t *testing.T) {
	sel, err := Select(testFormats(), Preference{FormatIndex: 10, FrameIndex: -3})
	require.NoError(t, err)
	assert.Equal(t, 3, sel.Format.Index)

	sel, err = Select(testFormats(), Preference{FrameIndex: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, sel.Frame.Index)
}

func TestSelectNoFormats(t *testing.T) {
	_, err := Select(nil, Preference{})
	assert.True(t, errors.Is(err, ErrNoMatchingMode))
}

func TestMatchMode(t *testing.T) {
	ctrl, err := matchMode(testFormats(), StreamRequest{Format: FormatNV12, Width: 640, Height: 480, FPS: 15})
	require.NoError(t, err)
	assert.Equal(t, uint16(1), ctrl.Hint)
	assert.Equal(t, 1, ctrl.FormatIndex)
	assert.Equal(t, 2, ctrl.FrameIndex)
	assert.Equal(t, uint32(666666), ctrl.FrameInterval)
	assert.Equal(t, uint32(640*480*3/2), ctrl.MaxVideoFrameSize)
	assert.Equal(t, "NV12", ctrl.FourCC)

	ctrl, err = matchMode(testFormats(), StreamRequest{Format: FormatMJPEG, Width: 1920, Height: 1080})
	require.NoError(t, err)
	assert.Equal(t, uint32(333333), ctrl.FrameInterval)
	assert.Equal(t, uint32(1920*1080*2), ctrl.MaxVideoFrameSize)
}

func TestMatchModeNoMatch(t *testing.T) {
	_, err := matchMode(testFormats(), StreamRequest{Format: FormatNV12, Width: 320, Height: 240, FPS: 30})
	assert.True(t, errors.Is(err, ErrNoMatchingMode))

	_, err = matchMode(testFormats(), StreamRequest{Format: FormatYUYV, Width: 640, Height: 480})
	assert.True(t, errors.Is(err, ErrNoMatchingMode))
}

func TestStreamControlPrint(t *testing.T) {
	ctrl := StreamControl{
		Hint:              1,
		FormatIndex:       1,
		FrameIndex:        2,
		FrameInterval:     333333,
		MaxVideoFrameSize: 460800,
		Format:            FormatNV12,
		FourCC:            "NV12",
		Width:             640,
		Height:            480,
		FPS:               30,
	}
	var buf bytes.Buffer
	ctrl.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "bmHint: 0001\n")
	assert.Contains(t, out, "bFormatIndex: 1\n")
	assert.Contains(t, out, "bFrameIndex: 2\n")
	assert.Contains(t, out, "dwFrameInterval: 333333\n")
	assert.Contains(t, out, "dwMaxVideoFrameSize: 460800\n")
	assert.Contains(t, out, "format: nv12 (NV12) 640x480 30fps\n")
}
