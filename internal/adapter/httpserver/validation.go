package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

type createSessionRequest struct {
	UserID           string `json:"userId" validate:"required,max=128"`
	Position         string `json:"position" validate:"required,max=200"`
	Company          string `json:"company" validate:"max=200"`
	Industry         string `json:"industry" validate:"max=100"`
	InterviewStage   string `json:"interviewStage" validate:"required,interviewstage"`
	JobDescriptionID string `json:"jobDescriptionId" validate:"max=64"`
}

// Message length is enforced by truncation in the use case, not rejected here.
type sendMessageRequest struct {
	Message string `json:"message"`
}

type speechRequest struct {
	Text      string `json:"text" validate:"required"`
	VoiceID   string `json:"voiceId" validate:"max=64"`
	SessionID string `json:"sessionId" validate:"max=64"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		_ = vld.RegisterValidation("interviewstage", func(fl validator.FieldLevel) bool {
			return domain.InterviewStage(fl.Field().String()).Valid()
		})
	})
	return vld
}

// decodeJSON reads a capped JSON body into dst and validates it. Returned
// details map lowercased field names to the failing rule.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: request body too large", domain.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return verrs, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	return nil, nil
}

// acceptsJSON reports whether the Accept header allows a JSON response.
func acceptsJSON(r *http.Request) bool {
	a := r.Header.Get("Accept")
	return a == "" || strings.Contains(a, "*/*") || strings.Contains(a, "application/json")
}

// parseLimit reads an optional positive integer query parameter; 0 means unset.
func parseLimit(raw string, maxLimit int) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidArgument, maxLimit)
	}
	return n, nil
}
