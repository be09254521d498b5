package main

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())
}

func writeJSON(writer http.ResponseWriter, status int, message string, data any) error {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	jR := map[string]any{
		"status":  status,
		"success": status < 399,
		"message": message,
		"data":    data,
	}

	return json.NewEncoder(writer).Encode(jR)
}

// readFormData parses a multipart (or urlencoded) form into data using the
// "form" tags and returns the uploaded files. maxBytes bounds the whole body.
func readFormData(writer http.ResponseWriter, request *http.Request, data any, maxBytes int64) (map[string][]*multipart.FileHeader, error) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBytes)

	files := make(map[string][]*multipart.FileHeader)

	if err := request.ParseMultipartForm(32 << 20); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, err
		}
		if err := request.ParseForm(); err != nil {
			return nil, err
		}
	} else {
		files = request.MultipartForm.File
	}

	decoderConfig := &mapstructure.DecoderConfig{
		Result:           data,
		TagName:          "form",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{})
	for key, val := range request.Form {
		if len(val) == 1 {
			values[key] = val[0]
		} else {
			values[key] = val
		}
	}

	if err := decoder.Decode(values); err != nil {
		return nil, err
	}

	return files, nil
}

func readJSON(writer http.ResponseWriter, request *http.Request, data any) error {
	maxBytes := 1_048_576 // 1mb
	request.Body = http.MaxBytesReader(writer, request.Body, int64(maxBytes))

	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()

	return decoder.Decode(data)
}

func writeJSONError(writer http.ResponseWriter, status int, message string, data any) error {
	return writeJSON(writer, status, message, data)
}

// validationErrors flattens validator errors into json field -> rule.
func validationErrors(err error) map[string]string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil
	}

	out := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out[strings.ToLower(fe.Field())] = rule
	}
	return out
}
