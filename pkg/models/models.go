package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrEmptyPromptAndReferences = errors.New("please enter a prompt or add an image")
	ErrNoResultToAnimate        = errors.New("please select an image first to animate")
	ErrNotAnImage               = errors.New("only images are supported")
	ErrEmptySelection           = errors.New("no shots selected")
	ErrInvalidMediaType         = errors.New("invalid media type")
	ErrUnknownCamera            = errors.New("unknown camera")
	ErrUnknownLens              = errors.New("unknown lens")
	ErrUnknownFocalLength       = errors.New("unknown focal length")
	ErrUnknownMovement          = errors.New("unknown movement")
	ErrUnknownAspectRatio       = errors.New("unknown aspect ratio")
	ErrInvalidStrength          = errors.New("image strength must be between 0 and 1")
)

// MultishotCount is the number of alternative angles the backend produces
// for a single source image.
const MultishotCount = 9

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

func ValidMediaTypes() []MediaType {
	return []MediaType{MediaImage, MediaVideo}
}

func (m MediaType) IsValid() bool {
	return slices.Contains(ValidMediaTypes(), m)
}

func (m MediaType) String() string {
	return string(m)
}

func ParseMediaType(s string) (MediaType, error) {
	m := MediaType(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMediaType, s)
	}
	return m, nil
}

// GenerationRecord is a single entry of the backend history.
type GenerationRecord struct {
	ID          int64     `json:"id"`
	Type        MediaType `json:"type"`
	URL         string    `json:"url"`
	Prompt      string    `json:"prompt"`
	Camera      string    `json:"camera"`
	Lens        string    `json:"lens"`
	FocalLength string    `json:"focal_length"`
	IsFavorite  bool      `json:"is_favorite"`
	CreatedAt   float64   `json:"created_at,omitempty"`
}

func (r *GenerationRecord) IsImage() bool {
	return r.Type == MediaImage
}

func (r *GenerationRecord) IsVideo() bool {
	return r.Type == MediaVideo
}

type UploadRecord struct {
	ID         int64   `json:"id"`
	Base64Data string  `json:"base64_data"`
	CreatedAt  float64 `json:"created_at,omitempty"`
}

// ProxyShot is a low-cost draft produced by a multishot run.
type ProxyShot struct {
	ID     int64  `json:"id"`
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

type GenerateImageRequest struct {
	Prompt          string   `json:"prompt"`
	Camera          string   `json:"camera"`
	Lens            string   `json:"lens"`
	FocalLength     string   `json:"focal_length"`
	AspectRatio     string   `json:"aspect_ratio"`
	ReferenceImages []string `json:"reference_images"`
	ImageStrength   float64  `json:"image_strength"`
}

type GenerateImageResponse struct {
	Status   string `json:"status"`
	ImageURL string `json:"image_url"`
	Detail   string `json:"detail,omitempty"`
}

type GenerateVideoRequest struct {
	Prompt      string `json:"prompt"`
	Camera      string `json:"camera"`
	Lens        string `json:"lens"`
	FocalLength string `json:"focal_length"`
	AspectRatio string `json:"aspect_ratio"`
	ImageURL    string `json:"image_url"`
}

type GenerateVideoResponse struct {
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Detail   string `json:"detail,omitempty"`
}

type UploadRequest struct {
	Base64Data string `json:"base64_data"`
}

type MultishotRequest struct {
	SourceImageID int64 `json:"source_image_id"`
}

type MultishotResponse struct {
	Status   string  `json:"status"`
	ProxyIDs []int64 `json:"proxy_ids"`
	Detail   string  `json:"detail,omitempty"`
}

type UpscaleRequest struct {
	ProxyIDs []int64 `json:"proxy_ids"`
}

type UpscaleResponse struct {
	Status        string `json:"status"`
	UpscaledCount int    `json:"upscaled_count"`
	Detail        string `json:"detail,omitempty"`
}

type FavoriteRequest struct {
	IsFavorite bool `json:"is_favorite"`
}

// StatusSuccess is the status value the backend reports for completed work.
const StatusSuccess = "success"

// NewImageRequest builds an image payload from the current gear selection.
func NewImageRequest(prompt string, gear Gear, aspectRatio string, refs []string, strength float64) *GenerateImageRequest {
	if refs == nil {
		refs = []string{}
	}
	return &GenerateImageRequest{
		Prompt:          prompt,
		Camera:          gear.Camera.Name,
		Lens:            gear.Lens.Name,
		FocalLength:     gear.FocalLength,
		AspectRatio:     aspectRatio,
		ReferenceImages: refs,
		ImageStrength:   strength,
	}
}

// NewVideoRequest builds a video payload animating sourceURL.
func NewVideoRequest(prompt string, gear Gear, aspectRatio, sourceURL string) *GenerateVideoRequest {
	return &GenerateVideoRequest{
		Prompt:      prompt,
		Camera:      gear.Camera.Name,
		Lens:        gear.Lens.Name,
		FocalLength: gear.FocalLength,
		AspectRatio: aspectRatio,
		ImageURL:    sourceURL,
	}
}

// ValidateStrength reports whether s is a usable reference likeness value.
func ValidateStrength(s float64) error {
	if s < 0 || s > 1 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidStrength, s)
	}
	return nil
}

// UnmarshalJSON accepts is_favorite as a JSON bool or as the 0/1 integer an
// sqlite-backed service returns.
func (r *GenerationRecord) UnmarshalJSON(data []byte) error {
	type plain GenerationRecord
	aux := struct {
		*plain
		IsFavorite json.RawMessage `json:"is_favorite"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	fav, err := parseFlag(aux.IsFavorite)
	if err != nil {
		return fmt.Errorf("is_favorite: %w", err)
	}
	r.IsFavorite = fav
	return nil
}

func parseFlag(raw json.RawMessage) (bool, error) {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	}
	return false, fmt.Errorf("unexpected value %s", s)
}
