package domain

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ModelType is the subject type the model is trained on.
type ModelType string

const (
	TypeMan    ModelType = "Man"
	TypeWoman  ModelType = "Woman"
	TypeOthers ModelType = "Others"
)

// Ethnicity of the training subject.
type Ethnicity string

const (
	EthnicityWhite          Ethnicity = "White"
	EthnicityBlack          Ethnicity = "Black"
	EthnicityAsianAmerican  Ethnicity = "Asian American"
	EthnicityEastAsian      Ethnicity = "East Asian"
	EthnicitySouthEastAsian Ethnicity = "South East Asian"
	EthnicitySouthAsian     Ethnicity = "South Asian"
	EthnicityMiddleEastern  Ethnicity = "Middle Eastern"
	EthnicityPacific        Ethnicity = "Pacific"
	EthnicityHispanic       Ethnicity = "Hispanic"
)

// EyeColor of the training subject.
type EyeColor string

const (
	EyeBrown EyeColor = "Brown"
	EyeBlue  EyeColor = "Blue"
	EyeHazel EyeColor = "Hazel"
	EyeGray  EyeColor = "Gray"
)

var (
	ModelTypes  = []ModelType{TypeMan, TypeWoman, TypeOthers}
	Ethnicities = []Ethnicity{
		EthnicityWhite, EthnicityBlack, EthnicityAsianAmerican, EthnicityEastAsian,
		EthnicitySouthEastAsian, EthnicitySouthAsian, EthnicityMiddleEastern,
		EthnicityPacific, EthnicityHispanic,
	}
	EyeColors = []EyeColor{EyeBrown, EyeBlue, EyeHazel, EyeGray}
)

const (
	minAge        = 1
	maxAge        = 120
	maxNameLength = 64
)

// TrainingAttributes are the provider input parameters of a training job. Immutable after creation.
type TrainingAttributes struct {
	Name      string    `json:"name"`
	Type      ModelType `json:"type"`
	Age       int       `json:"age"`
	Ethnicity Ethnicity `json:"ethnicity"`
	EyeColor  EyeColor  `json:"eye_color"`
	Bald      bool      `json:"bald"`
}

// Validate checks the attributes against the supported value sets.
func (a TrainingAttributes) Validate() error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return Invalid("name", "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return Invalid("name", "name exceeds 64 characters")
	}
	if !contains(ModelTypes, a.Type) {
		return Invalid("type", "unsupported model type "+string(a.Type))
	}
	if a.Age < minAge || a.Age > maxAge {
		return Invalid("age", "age must be between 1 and 120")
	}
	if !contains(Ethnicities, a.Ethnicity) {
		return Invalid("ethnicity", "unsupported ethnicity "+string(a.Ethnicity))
	}
	if !contains(EyeColors, a.EyeColor) {
		return Invalid("eye_color", "unsupported eye color "+string(a.EyeColor))
	}
	return nil
}

// TrainingJob is a model-training job throughout its lifecycle.
type TrainingJob struct {
	ID                uuid.UUID          `json:"id"`
	OwnerID           string             `json:"owner_id"`
	Attributes        TrainingAttributes `json:"attributes"`
	SourceArtifactRef string             `json:"source_artifact_ref"`
	CorrelationID     *string            `json:"correlation_id,omitempty"`
	Status            JobStatus          `json:"status"`
	ResultArtifactRef *string            `json:"result_artifact_ref,omitempty"`
	FailureReason     *FailureReason     `json:"failure_reason,omitempty"`
	ErrorMessage      *string            `json:"error_message,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
}

// Ready reports whether the model can be used as a generation model reference.
func (j *TrainingJob) Ready() bool {
	return j.Status == StatusCompleted && j.ResultArtifactRef != nil && *j.ResultArtifactRef != ""
}

// TrainingInput is the validated input of a training submission.
type TrainingInput struct {
	Attributes        TrainingAttributes
	SourceArtifactRef string
}

// Validate checks the attributes and the uploaded archive location.
func (in TrainingInput) Validate() error {
	if err := in.Attributes.Validate(); err != nil {
		return err
	}
	u, err := url.Parse(strings.TrimSpace(in.SourceArtifactRef))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Invalid("zip_url", "zip_url must be an absolute http(s) URL")
	}
	return nil
}

// TrainRequest is the incoming POST /ai/training payload.
type TrainRequest struct {
	Name      string `json:"name" binding:"required"`
	Type      string `json:"type" binding:"required"`
	Age       int    `json:"age" binding:"required"`
	Ethnicity string `json:"ethnicity" binding:"required"`
	EyeColor  string `json:"eyeColor" binding:"required"`
	Bald      bool   `json:"bald"`
	ZipURL    string `json:"zipUrl" binding:"required"`
}

// Input converts the request into a TrainingInput.
func (r *TrainRequest) Input() TrainingInput {
	return TrainingInput{
		Attributes: TrainingAttributes{
			Name:      strings.TrimSpace(r.Name),
			Type:      ModelType(r.Type),
			Age:       r.Age,
			Ethnicity: Ethnicity(r.Ethnicity),
			EyeColor:  EyeColor(r.EyeColor),
			Bald:      r.Bald,
		},
		SourceArtifactRef: strings.TrimSpace(r.ZipURL),
	}
}

// TrainingOptions lists the accepted attribute values.
type TrainingOptions struct {
	Types       []ModelType `json:"types"`
	Ethnicities []Ethnicity `json:"ethnicities"`
	EyeColors   []EyeColor  `json:"eye_colors"`
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
