// Package rawdng implements the raw-to-DNG conversion core: vendor RAW
// demultiplexing, sensor-payload decompression (principally Canon's CRX
// wavelet/Golomb-Rice codec and lossless JPEG-92), DNG assembly with
// lossless re-encoding, and digest-verified original-file embedding and
// extraction.
//
// The public surface mirrors the CLI verbs an external orchestration
// layer drives this library with (convert, extract, analyze): Convert
// decodes a source file and emits a DNG byte stream, Extract reverses
// an embedded-original DNG back to the source bytes, and Describe
// returns a cheap, decode-free summary of what Convert would do. The
// package does no file-system orchestration itself (no directory
// walking, no job scheduling, no CLI) — per spec §1, those are external
// collaborators that call into this core once per file.
package rawdng

import (
	"github.com/rawforge/rawdng/internal/catalog"
	"github.com/rawforge/rawdng/internal/rawerr"
)

// Kind is this module's error taxonomy (spec §7): Unsupported,
// DecoderFailed, AlreadyExists, DigestMismatch, Io, BadArgs.
type Kind = rawerr.Kind

const (
	Unsupported    = rawerr.Unsupported
	DecoderFailed  = rawerr.DecoderFailed
	AlreadyExists  = rawerr.AlreadyExists
	DigestMismatch = rawerr.DigestMismatch
	Io             = rawerr.Io
	BadArgs        = rawerr.BadArgs
)

// Error is this module's uniform error type, re-exported from
// internal/rawerr so callers outside this module can match on Kind via
// errors.As without importing an internal package.
type Error = rawerr.Error

// Camera is a camera descriptor's public view, re-exported from
// internal/catalog for Describe's result and for callers that want to
// enumerate the built-in catalog (spec §1 treats the catalog itself as
// an external collaborator's data, but this module ships a built-in
// table good enough to convert its own test fixtures).
type Camera = catalog.Camera

// Cameras lists every (make, model, mode) triple the built-in catalog
// recognizes.
func Cameras() []catalog.Key {
	return catalog.Global().Cameras()
}
