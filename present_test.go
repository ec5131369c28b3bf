package uvcview

import (
	"testing"

	"github.com/abihf/uvcview/capture"
	"github.com/abihf/uvcview/render"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPresenter(t *testing.T, format capture.FrameFormat, w, h int) (*presenter, *fakeWindow) {
	t.Helper()
	win := &fakeWindow{rec: &recorder{}}
	p, err := newPresenter(win, format, w, h, render.Rect{W: 960, H: 540})
	require.NoError(t, err)
	return p, win
}

func TestPresentNV12(t *testing.T) {
	p, win := newTestPresenter(t, capture.FormatNV12, 4, 2)
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	require.NoError(t, p.present(&capture.Frame{Format: capture.FormatNV12, Width: 4, Height: 2, Data: data}))

	tex := win.textures[0]
	assert.Equal(t, []string{"nv"}, tex.updates)
	assert.Equal(t, data[:8], tex.planes[0])
	assert.Equal(t, data[8:], tex.planes[1])
	assert.Equal(t, []int{4, 4}, tex.pitches)
	assert.Len(t, win.presents, 1)
}

func TestPresentI420(t *testing.T) {
	p, win := newTestPresenter(t, capture.FormatI420, 4, 2)

	require.NoError(t, p.present(&capture.Frame{Format: capture.FormatI420, Width: 4, Height: 2, Data: make([]byte, 12)}))

	tex := win.textures[0]
	assert.Equal(t, []string{"yuv"}, tex.updates)
	assert.Equal(t, []int{4, 2, 2}, tex.pitches)
	assert.Len(t, tex.planes[1], 2)
}

func TestPresentPackedAndCompressed(t *testing.T) {
	p, win := newTestPresenter(t, capture.FormatI420, 4, 2)

	require.NoError(t, p.present(&capture.Frame{Format: capture.FormatYUYV, Width: 4, Height: 2, Data: make([]byte, 16)}))
	require.NoError(t, p.present(&capture.Frame{Format: capture.FormatMJPEG, Width: 4, Height: 2, Data: []byte{0xff, 0xd8}}))

	tex := win.textures[0]
	assert.Equal(t, []string{"packed", "compressed"}, tex.updates)
	assert.Equal(t, []int{8}, tex.pitches)
	assert.Len(t, win.presents, 2)
}

func TestPresentDropsH264(t *testing.T) {
	p, win := newTestPresenter(t, capture.FormatI420, 4, 2)

	err := p.present(&capture.Frame{Format: capture.FormatH264, Width: 4, Height: 2, Data: []byte{0, 0, 0, 1}})
	assert.True(t, errors.Is(err, render.ErrUnsupportedFormat))
	assert.Empty(t, win.presents)
	assert.Empty(t, win.textures[0].updates)
}

func TestPresentShortFrame(t *testing.T) {
	p, win := newTestPresenter(t, capture.FormatNV12, 4, 2)

	err := p.present(&capture.Frame{Format: capture.FormatNV12, Width: 4, Height: 2, Data: make([]byte, 5)})
	assert.Error(t, err)
	assert.Empty(t, win.presents)
}

func TestPresentRecreatesTextureOnSizeChange(t *testing.T) {
	p, win := newTestPresenter(t, capture.FormatNV12, 4, 2)

	require.NoError(t, p.present(&capture.Frame{Format: capture.FormatNV12, Width: 2, Height: 2, Data: make([]byte, 6)}))

	require.Len(t, win.textures, 2)
	assert.Equal(t, 2, win.textures[1].width)
	assert.Equal(t, []string{"create_texture:nv12:4x2", "create_texture:nv12:2x2", "destroy_texture"}, win.rec.list())
	assert.Empty(t, win.textures[0].updates)
	assert.Equal(t, []string{"nv"}, win.textures[1].updates)

	p.close()
	p.close()
	assert.Equal(t, "destroy_texture", win.rec.list()[3])
	assert.Len(t, win.rec.list(), 4)
}
