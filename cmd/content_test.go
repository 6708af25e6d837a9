package cmd

import (
	"crypto/sha1"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/svnwire/svnwire/caps"
	"github.com/svnwire/svnwire/edit"
	"github.com/svnwire/svnwire/wire"
)

func TestContentRoundTripsFileBytesAndChecksum(t *testing.T) {
	a := wire.NewArena()
	content := edit.Content{Kind: edit.KindFile, Props: map[string][]byte{"k": []byte("v")}, Stream: strings.NewReader("hello world")}

	it, err := EncodeContent(a, content)
	require.NoError(t, err)

	decoded, data, err := DecodeContent(it, caps.NewSet())
	require.NoError(t, err)
	require.Equal(t, edit.KindFile, decoded.Kind)
	require.Equal(t, []byte("hello world"), data)
	require.True(t, decoded.HasChecksum)
	require.Equal(t, sha1.Sum([]byte("hello world")), decoded.Checksum)
}

func TestContentAbsentStreamCarriesNoPayload(t *testing.T) {
	a := wire.NewArena()
	content := edit.Content{Kind: edit.KindDir, Props: map[string][]byte{}}

	it, err := EncodeContent(a, content)
	require.NoError(t, err)

	decoded, data, err := DecodeContent(it, caps.NewSet())
	require.NoError(t, err)
	require.Nil(t, data)
	require.False(t, decoded.HasChecksum)
}

func TestDecodeContentRejectsSVNDiff1WithoutCapability(t *testing.T) {
	a := wire.NewArena()
	it := a.List(
		a.Word("file"),
		EncodePeg(a, edit.PegPath{Rev: -1, RelPath: ""}),
		a.List(),
		a.Word("none"),
		a.Word(EncodingSVNDiff1),
		a.String([]byte("delta bytes")),
		a.String(nil),
	)

	_, _, err := DecodeContent(it, caps.NewSet())
	require.ErrorIs(t, err, caps.ErrUnsupported)
}

func TestDecodeContentRejectsSVNDiff1EvenWhenNegotiated(t *testing.T) {
	a := wire.NewArena()
	it := a.List(
		a.Word("file"),
		EncodePeg(a, edit.PegPath{Rev: -1, RelPath: ""}),
		a.List(),
		a.Word("none"),
		a.Word(EncodingSVNDiff1),
		a.String([]byte("delta bytes")),
		a.String(nil),
	)

	negotiated := caps.NewSet()
	negotiated.Add(caps.SVNDiff1)
	_, _, err := DecodeContent(it, negotiated)
	require.ErrorIs(t, err, ErrSVNDiff1Unsupported)
}

func TestDecodeContentRejectsChecksumMismatch(t *testing.T) {
	a := wire.NewArena()
	badSum := sha1.Sum([]byte("not the real bytes"))
	it := a.List(
		a.Word("file"),
		EncodePeg(a, edit.PegPath{Rev: -1, RelPath: ""}),
		a.List(),
		a.String(badSum[:]),
		a.Word(EncodingRaw),
		a.String([]byte("hello world")),
		a.String(nil),
	)

	_, _, err := DecodeContent(it, caps.NewSet())
	require.ErrorIs(t, err, ErrChecksumMismatch)
}
