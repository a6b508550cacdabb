package api

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/listing"
	"github.com/vault-console/internal/service"
	"github.com/vault-console/internal/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by the name clients send
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("chain", func(fl validator.FieldLevel) bool {
		return types.ChainID(fl.Field().String()).IsValid()
	})
	return v
}

// validateStruct runs the struct's validate tags and converts the first
// failure into a validation error
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewValidationError("body", err.Error())
	}

	fe := verrs[0]
	return apperrors.NewValidationError(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "chain":
		return fmt.Sprintf("%s must be a supported chain", fe.Field())
	case "email":
		return "Please enter a valid email address"
	case "datetime":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// listQuery is the filter, sort and pagination query of the list endpoints
type listQuery struct {
	Search    string `query:"search"`
	Chain     string `query:"chain" validate:"omitempty,oneof=all solana-mainnet base-mainnet worldchain-mainnet sui-mainnet"`
	Automated string `query:"automated" validate:"omitempty,oneof=all true false"`
	Score     string `query:"score" validate:"omitempty,oneof=all below-50 50-60 60-70 70-80 80-90 90-100"`
	Sort      string `query:"sort"`
	Order     string `query:"order" validate:"omitempty,oneof=asc desc"`
	Page      int    `query:"page" validate:"gte=1,lte=1000000"`
	PageSize  int    `query:"page_size" validate:"gte=1,lte=500"`
}

// parseListQuery reads a list query, defaulting to the first page of
// pageSize records
func parseListQuery(q url.Values, pageSize int) (*listQuery, error) {
	lq := &listQuery{
		Search:    q.Get("search"),
		Chain:     q.Get("chain"),
		Automated: strings.ToLower(q.Get("automated")),
		Score:     q.Get("score"),
		Sort:      q.Get("sort"),
		Order:     strings.ToLower(q.Get("order")),
		Page:      1,
		PageSize:  pageSize,
	}

	var err error
	if lq.Page, err = intParam(q, "page", 1); err != nil {
		return nil, err
	}
	if lq.PageSize, err = intParam(q, "page_size", pageSize); err != nil {
		return nil, err
	}
	if err := validateStruct(lq); err != nil {
		return nil, err
	}
	return lq, nil
}

// State converts the query into list view state
func (lq *listQuery) State() *listing.State {
	st := listing.NewState(lq.PageSize)
	st.SetSearch(lq.Search)
	st.SetFilter(service.FilterChain, lq.Chain)
	st.SetFilter(service.FilterAutomated, lq.Automated)
	st.SetFilter(service.FilterScore, lq.Score)
	st.SetSort(lq.Sort, types.SortOrder(lq.Order))
	st.SetPage(lq.Page)
	return st
}

// dateRangeQuery reads start_date and end_date
func dateRangeQuery(q url.Values) (types.DateRange, error) {
	dr := types.DateRange{StartDate: q.Get("start_date"), EndDate: q.Get("end_date")}
	if err := dr.Validate(); err != nil {
		return dr, apperrors.NewValidationError("date_range", err.Error())
	}
	return dr, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidParameterError(name, "must be an integer")
	}
	return n, nil
}
