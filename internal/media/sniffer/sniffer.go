package sniffer

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeAVIF MediaType = "avif"
	TypeSVG  MediaType = "svg"
)

// HeadSize is the number of leading bytes DetectHead needs.
const HeadSize = 512

var (
	ErrUnknownType  = errors.New("unknown media type")
	ErrTypeMismatch = errors.New("declared type does not match content")
)

// Browsers and older clients send these for the canonical types.
var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
}

type Result struct {
	Type MediaType
	MIME string
}

// Ext is the file extension used for stored objects.
func (r Result) Ext() string {
	if r.Type == TypeJPEG {
		return "jpg"
	}
	return string(r.Type)
}

// Detect sniffs a whole upload and checks it against the content type the
// client declared. An empty or octet-stream declaration is not checked.
func Detect(data []byte, declared string) (Result, error) {
	head := data
	if len(head) > HeadSize {
		head = head[:HeadSize]
	}

	res, err := DetectHead(head)
	if err != nil {
		return Result{}, err
	}

	declared = strings.ToLower(strings.TrimSpace(declared))
	if alias, ok := mimeAliases[declared]; ok {
		declared = alias
	}
	if declared != "" && declared != "application/octet-stream" && declared != res.MIME {
		return res, fmt.Errorf("%w: declared %s, actual %s", ErrTypeMismatch, declared, res.MIME)
	}
	return res, nil
}

// DetectHead identifies an image from its leading bytes.
func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	if isJPEG(head) {
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	}
	if isPNG(head) {
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	}
	if isGIF(head) {
		return Result{Type: TypeGIF, MIME: "image/gif"}, nil
	}
	if isWEBP(head) {
		return Result{Type: TypeWEBP, MIME: "image/webp"}, nil
	}
	if isAVIF(head) {
		return Result{Type: TypeAVIF, MIME: "image/avif"}, nil
	}
	if isSVG(head) {
		return Result{Type: TypeSVG, MIME: "image/svg+xml"}, nil
	}

	return Result{}, ErrUnknownType
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

func isAVIF(head []byte) bool {
	if len(head) < 12 {
		return false
	}
	boxType := string(head[8:12])
	return boxType == "ftyp" && bytes.Contains(head[12:], []byte("avif"))
}

func isSVG(head []byte) bool {
	trimmed := strings.ToLower(strings.TrimSpace(string(bytes.TrimPrefix(head, []byte{0xef, 0xbb, 0xbf}))))
	if strings.HasPrefix(trimmed, "<svg") {
		return true
	}
	return strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg")
}

// MimeTypeFromHTTP returns the media type of a multipart part header without
// parameters.
func MimeTypeFromHTTP(header http.Header) string {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}
