package webutils

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	io.Copy(w, in)
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(res); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}

func WriteError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	logrus.WithError(err).Error("Request failed")
	w.WriteHeader(http.StatusInternalServerError)
	w.Header().Set("Content-Type", "application/json")
	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr != nil {
		return
	}
	w.Write(data)
}

// ReadUploadedFile pulls a single uploaded form file from a POST
// request.
func ReadUploadedFile(r *http.Request, formFileKey string) ([]byte, error) {
	if r.Method != http.MethodPost {
		return nil, errors.Errorf("Invalid http method %q", r.Method)
	}
	f, _, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read file")
	}
	return data, nil
}
