package graphics2d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRecorderTracksLiveTextures(t *testing.T) {
	rec := NewCommandRecorder(320, 200)

	w, h := rec.Viewport()
	assert.Equal(t, uint32(320), w)
	assert.Equal(t, uint32(200), h)

	a := rec.RequestTexture("a", 320, 200)
	b := rec.RequestTexture("b", 320, 200)
	require.True(t, a.Valid())
	require.NotEqual(t, a, b)
	assert.ElementsMatch(t, []string{"a", "b"}, rec.LiveTextures())

	rec.ReleaseTexture(a)
	assert.Equal(t, []string{"b"}, rec.LiveTextures())

	cmds := rec.Commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, CmdRequestTexture, cmds[0].Type())
	assert.Equal(t, CmdReleaseTexture, cmds[2].Type())
	assert.Equal(t, a, cmds[2].(ReleaseTextureCommand).Handle)
}

func TestCommandRecorderResetKeepsSentinel(t *testing.T) {
	rec := NewCommandRecorder(320, 200)
	black := rec.BlackTexture()
	rec.RequestTexture("scratch", 320, 200)

	rec.Reset()
	assert.Empty(t, rec.Commands())
	assert.Empty(t, rec.LiveTextures())
	assert.Equal(t, black, rec.BlackTexture())
}

func TestCommandTypeString(t *testing.T) {
	assert.Equal(t, "DrawRenderers", CmdDrawRenderers.String())
	assert.Equal(t, "Flush", CmdFlush.String())
	assert.Equal(t, "Unknown", CommandType(200).String())
}
