package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is returned when the client omits pageSize.
	DefaultPageSize = 50
	// MaxPageSize caps pageSize to prevent unbounded queries.
	MaxPageSize = 200
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidOrderBy   = errors.New("pagination: invalid orderBy")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// Order describes a single order-by clause.
type Order struct {
	Field string
	Desc  bool
}

// Params bundles the pagination and sorting values extracted from a request.
type Params struct {
	PageSize  int
	PageToken string
	Cursor    Cursor
	Orders    []Order
}

// Options control parsing for a given handler.
type Options struct {
	DefaultPageSize    int
	MaxPageSize        int
	AllowedOrderFields []string
}

// Parse consumes pageSize, pageToken and orderBy query values.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	pageSize, err := parsePageSize(values.Get("pageSize"), opts)
	if err != nil {
		return Params{}, err
	}
	params := Params{PageSize: pageSize}

	if token := strings.TrimSpace(values.Get("pageToken")); token != "" {
		cursor, err := DecodeToken(token)
		if err != nil {
			return Params{}, err
		}
		params.PageToken = token
		params.Cursor = cursor
	}

	orders, err := parseOrders(values["orderBy"], opts.AllowedOrderFields)
	if err != nil {
		return Params{}, err
	}
	params.Orders = orders

	return params, nil
}

func parsePageSize(raw string, opts Options) (int, error) {
	maxSize := opts.MaxPageSize
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	defaultSize := opts.DefaultPageSize
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultSize, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
	}
	if value > maxSize {
		value = maxSize
	}
	return value, nil
}

func parseOrders(values []string, allowed []string) ([]Order, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: ordering not supported", ErrInvalidOrderBy)
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, field := range allowed {
		if field != "" {
			allowedSet[field] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var orders []Order
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			order, err := parseOrder(part)
			if err != nil {
				return nil, err
			}
			if _, ok := allowedSet[order.Field]; !ok {
				return nil, fmt.Errorf("%w: field %q is not allowed", ErrInvalidOrderBy, order.Field)
			}
			key := fmt.Sprintf("%s:%t", order.Field, order.Desc)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func parseOrder(part string) (Order, error) {
	segments := strings.Fields(strings.ReplaceAll(part, ":", " "))
	if len(segments) == 0 || len(segments) > 2 {
		return Order{}, fmt.Errorf("%w: invalid orderBy %q", ErrInvalidOrderBy, part)
	}

	field := segments[0]
	for _, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return Order{}, fmt.Errorf("%w: invalid field %q", ErrInvalidOrderBy, field)
		}
	}

	order := Order{Field: field}
	if len(segments) == 2 {
		switch strings.ToLower(segments[1]) {
		case "asc":
		case "desc":
			order.Desc = true
		default:
			return Order{}, fmt.Errorf("%w: invalid direction %q", ErrInvalidOrderBy, segments[1])
		}
	}
	return order, nil
}
