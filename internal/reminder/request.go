package reminder

import (
	"encoding/json"
	"math"
	"time"
)

// ParseCreateRequest builds a CreateRequest from tool arguments and validates it.
func ParseCreateRequest(args map[string]interface{}) (CreateRequest, error) {
	var req CreateRequest

	title, err := stringArg(args, "title")
	if err != nil {
		return req, err
	}
	if title != nil {
		req.Title = *title
	}
	if req.DueDate, err = dateArg(args, "due_date"); err != nil {
		return req, err
	}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"notes", &req.Notes},
		{"list_name", &req.ListName},
		{"url", &req.URL},
	} {
		v, err := stringArg(args, f.key)
		if err != nil {
			return req, err
		}
		if v != nil {
			*f.dst = *v
		}
	}
	p, err := intArg(args, "priority")
	if err != nil {
		return req, err
	}
	if p != nil {
		req.Priority = *p
	}

	return req, req.Validate()
}

// ParseUpdateRequest builds an UpdateRequest from tool arguments. Only keys
// present in args become set fields.
func ParseUpdateRequest(args map[string]interface{}) (UpdateRequest, error) {
	var req UpdateRequest
	var err error

	if req.Title, err = stringArg(args, "title"); err != nil {
		return req, err
	}
	if req.Notes, err = stringArg(args, "notes"); err != nil {
		return req, err
	}
	if req.ListName, err = stringArg(args, "list_name"); err != nil {
		return req, err
	}
	if req.URL, err = stringArg(args, "url"); err != nil {
		return req, err
	}
	if req.DueDate, err = dateArg(args, "due_date"); err != nil {
		return req, err
	}
	if req.Priority, err = intArg(args, "priority"); err != nil {
		return req, err
	}
	if req.Completed, err = boolArg(args, "completed"); err != nil {
		return req, err
	}

	return req, req.Validate()
}

// compactArgs drops null-valued arguments so they read as absent.
func compactArgs(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

func stringArg(args map[string]interface{}, key string) (*string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, validationErrorf(key, "input should be a valid string, got %T", v)
	}
	return &s, nil
}

func boolArg(args map[string]interface{}, key string) (*bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, validationErrorf(key, "input should be a valid boolean, got %T", v)
	}
	return &b, nil
}

func intArg(args map[string]interface{}, key string) (*int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		return &n, nil
	case int64:
		i := int(n)
		return &i, nil
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return nil, validationErrorf(key, "input should be a valid integer, got %q", n.String())
		}
	default:
		return nil, validationErrorf(key, "input should be a valid integer, got %T", v)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil, validationErrorf(key, "input should be a valid integer, got %v", f)
	}
	i := int(f)
	return &i, nil
}

func dateArg(args map[string]interface{}, key string) (*time.Time, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	t, err := NormalizeDueDate(key, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
