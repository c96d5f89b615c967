package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cimillas/hut-booking/internal/domain"
)

const (
	idempotencyHeader = "Idempotency-Key"
	dateLayout        = "2006-01-02"
	maxBodyBytes      = 64 << 10
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates its struct tags. An
// empty body is accepted when allowEmpty is set and leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return false
		}
	}
	if err := validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	fe := verrs[0]
	writeErrorResponse(w, http.StatusBadRequest, errorResponse{
		Error: fmt.Sprintf("%s: failed %s", fe.Field(), describeTag(fe)),
		Code:  codeValidationFailed,
		Field: fe.Field(),
	})
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// optionalRange turns a pair of optional date strings into a range. Giving
// only one of the two is rejected.
func optionalRange(start, end *string) (*domain.DateRange, error) {
	if start == nil && end == nil {
		return nil, nil
	}
	if start == nil || end == nil {
		return nil, &domain.ValidationError{Field: "end_date", Reason: "start_date and end_date must be given together"}
	}
	rng, err := parseRange(*start, *end)
	if err != nil {
		return nil, err
	}
	return &rng, nil
}

func parseRange(start, end string) (domain.DateRange, error) {
	s, err := domain.ParseDate(start)
	if err != nil {
		return domain.DateRange{}, &domain.ValidationError{Field: "start_date", Reason: "must be a YYYY-MM-DD date"}
	}
	e, err := domain.ParseDate(end)
	if err != nil {
		return domain.DateRange{}, &domain.ValidationError{Field: "end_date", Reason: "must be a YYYY-MM-DD date"}
	}
	return domain.NewDateRange(s, e)
}

type createBookingRequest struct {
	StartDate         string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string `json:"end_date" validate:"required,datetime=2006-01-02"`
	PartySize         int    `json:"party_size" validate:"required,min=1"`
	RequesterName     string `json:"requester_name" validate:"required"`
	RequesterEmail    string `json:"requester_email" validate:"required,email"`
	Affiliation       string `json:"affiliation" validate:"required"`
	Note              string `json:"note"`
	LongStayConfirmed bool   `json:"long_stay_confirmed"`
}

type editBookingRequest struct {
	StartDate     *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	PartySize     *int    `json:"party_size" validate:"omitempty,min=1"`
	RequesterName *string `json:"requester_name"`
	Affiliation   *string `json:"affiliation"`
	Note          *string `json:"note"`
}

type reopenBookingRequest struct {
	StartDate *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type cancelBookingRequest struct {
	Comment string `json:"comment"`
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=Approved Denied approve deny"`
	Comment  string `json:"comment"`
}

func (d decisionRequest) parse() (domain.Decision, error) {
	switch d.Decision {
	case "approve":
		return domain.DecisionApproved, nil
	case "deny":
		return domain.DecisionDenied, nil
	}
	return domain.ParseDecision(d.Decision)
}
