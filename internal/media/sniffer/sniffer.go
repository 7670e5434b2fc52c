package sniffer

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
)

// Kind is the coarse classification the ingestion pipeline routes on.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindVector  Kind = "vector"
	KindUnknown Kind = "unknown"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeAVIF MediaType = "avif"
	TypeBMP  MediaType = "bmp"
	TypeTIFF MediaType = "tiff"
	TypeMP4  MediaType = "mp4"
	TypeWEBM MediaType = "webm"
	TypeSVG  MediaType = "svg"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	Kind Kind
	MIME string
}

const headSize = 512

// DetectFile sniffs the first bytes of the file at path. The declared
// filename is consulted only for the SVG special case: vector markup
// has no magic bytes, so a ".svg" extension wins over content sniffing
// (see DetectNamed).
func DetectFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Detect(f)
}

// DetectNamed classifies by declared filename first: anything named
// *.svg is vector regardless of what sniffing would say. Everything
// else is content-sniffed.
func DetectNamed(path, declaredName string) (Result, error) {
	if strings.HasSuffix(strings.ToLower(declaredName), ".svg") {
		return Result{Type: TypeSVG, Kind: KindVector, MIME: "image/svg+xml"}, nil
	}
	return DetectFile(path)
}

func Detect(r io.Reader) (Result, error) {
	head := make([]byte, headSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, err
	}
	return DetectHead(head[:n])
}

func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{Kind: KindUnknown}, ErrUnknownType
	}

	switch {
	case isJPEG(head):
		return Result{Type: TypeJPEG, Kind: KindImage, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Type: TypePNG, Kind: KindImage, MIME: "image/png"}, nil
	case isGIF(head):
		return Result{Type: TypeGIF, Kind: KindImage, MIME: "image/gif"}, nil
	case isWEBP(head):
		return Result{Type: TypeWEBP, Kind: KindImage, MIME: "image/webp"}, nil
	case isMP4(head):
		return Result{Type: TypeMP4, Kind: KindVideo, MIME: "video/mp4"}, nil
	case isWEBM(head):
		return Result{Type: TypeWEBM, Kind: KindVideo, MIME: "video/webm"}, nil
	case isAVIF(head):
		return Result{Type: TypeAVIF, Kind: KindImage, MIME: "image/avif"}, nil
	case isBMP(head):
		return Result{Type: TypeBMP, Kind: KindImage, MIME: "image/bmp"}, nil
	case isTIFF(head):
		return Result{Type: TypeTIFF, Kind: KindImage, MIME: "image/tiff"}, nil
	}

	return Result{Kind: KindUnknown}, ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}

// isMP4 matches the ISO BMFF ftyp box with an mp4/quicktime brand.
// AVIF shares the container, so its brands are excluded here and picked
// up by isAVIF instead.
func isMP4(head []byte) bool {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return false
	}
	brand := string(head[8:12])
	if strings.HasPrefix(brand, "avif") || strings.HasPrefix(brand, "avis") {
		return false
	}
	switch {
	case strings.HasPrefix(brand, "isom"), strings.HasPrefix(brand, "iso2"),
		strings.HasPrefix(brand, "mp4"), strings.HasPrefix(brand, "M4V"),
		strings.HasPrefix(brand, "qt"), strings.HasPrefix(brand, "avc1"),
		strings.HasPrefix(brand, "3gp"):
		return true
	}
	return false
}

func isWEBM(head []byte) bool {
	// EBML header; matroska and webm share it, both decode the same way.
	return len(head) >= 4 && bytes.Equal(head[:4], []byte{0x1a, 0x45, 0xdf, 0xa3})
}

func isAVIF(head []byte) bool {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return false
	}
	return bytes.Contains(head[8:], []byte("avif"))
}

func isBMP(head []byte) bool {
	return len(head) >= 2 && head[0] == 'B' && head[1] == 'M'
}

func isTIFF(head []byte) bool {
	return len(head) >= 4 &&
		(bytes.Equal(head[:4], []byte{'I', 'I', 0x2a, 0x00}) || bytes.Equal(head[:4], []byte{'M', 'M', 0x00, 0x2a}))
}
