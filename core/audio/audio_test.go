package audio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/medkit/core/audio"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/errors"
	medkittest "github.com/teranos/medkit/internal/testing"
)

func sine(n int) [][]float32 {
	ch := make([]float32, n)
	for i := range ch {
		ch[i] = float32(i) / float32(n)
	}
	return [][]float32{ch}
}

func TestMemoryBufferTrim(t *testing.T) {
	buf, err := audio.NewMemoryBuffer(sine(16000), 8000)
	require.NoError(t, err)
	assert.Equal(t, 2.0, audio.Duration(buf))
	assert.Equal(t, 1, buf.NbChannels())

	trimmed, err := audio.TrimDuration(buf, 0.5, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 4000, trimmed.NbSamples())
	signal, err := trimmed.Read()
	require.NoError(t, err)
	assert.Equal(t, float32(4000)/16000, signal[0][0])

	_, err = buf.Trim(10, 5)
	assert.True(t, errors.IsInvalidRequestError(err))
	_, err = audio.TrimDuration(buf, 0, 3)
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = audio.NewMemoryBuffer([][]float32{{0, 1}, {0}}, 8000)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestPlaceholderBuffer(t *testing.T) {
	buf := audio.NewPlaceholderBuffer(16000, 32000, 2)
	trimmed, err := buf.Trim(0, 16000)
	require.NoError(t, err)
	assert.Equal(t, 1.0, audio.Duration(trimmed))
	assert.Equal(t, 2, trimmed.NbChannels())

	_, err = buf.Read()
	assert.True(t, errors.IsNotFoundError(err))
}

func TestDocument(t *testing.T) {
	buf, err := audio.NewMemoryBuffer(sine(8000), 8000)
	require.NoError(t, err)
	doc, err := audio.NewDocument(buf, "consult-1", nil)
	require.NoError(t, err)

	raws, err := doc.Anns().Get(audio.RawLabel, "")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, audio.Span{Start: 0, End: 1}, raws[0].Span())

	voice, err := buf.Trim(2000, 6000)
	require.NoError(t, err)
	seg, err := audio.NewSegment("voice", voice, audio.Span{Start: 0.25, End: 0.75})
	require.NoError(t, err)
	require.NoError(t, doc.AddAnnotation(seg))
	assert.InDelta(t, 0.5, seg.Span().Length(), 1e-9)

	got, err := doc.AnnotationsByLabel("voice")
	require.NoError(t, err)
	assert.Equal(t, seg.ID(), got[0].ID())

	reserved, err := audio.NewSegment(audio.RawLabel, voice, audio.Span{Start: 0, End: 0.5})
	require.NoError(t, err)
	assert.True(t, errors.IsConflictError(doc.Anns().Add(reserved)))
}

func TestSegmentOnSQLStore(t *testing.T) {
	s := store.NewSQLStore(medkittest.SetupTestDB(t), zaptest.NewLogger(t).Sugar())

	buf, err := audio.NewMemoryBuffer(sine(100), 100)
	require.NoError(t, err)
	doc, err := audio.NewDocument(buf, "", s)
	require.NoError(t, err)

	seg, err := audio.NewSegment("speech", audio.NewPlaceholderBuffer(100, 50, 1), audio.Span{Start: 0, End: 0.5})
	require.NoError(t, err)
	require.NoError(t, doc.Anns().Add(seg))

	item, err := s.Get(seg.ID())
	require.NoError(t, err)
	loaded := item.(*audio.Segment)
	assert.Equal(t, seg.Span(), loaded.Span())
	assert.Equal(t, 50, loaded.Audio().NbSamples())

	raw, err := s.Get(doc.RawAnnotation().ID())
	require.NoError(t, err)
	signal, err := raw.(*audio.Segment).Audio().Read()
	require.NoError(t, err)
	assert.Len(t, signal[0], 100)
}
