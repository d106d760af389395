package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"pixel-compare/internal/config"
	diffimage "pixel-compare/internal/diff/image"
	"pixel-compare/internal/loader"
	"pixel-compare/internal/picture"
	"pixel-compare/internal/report"
	"pixel-compare/internal/storage"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxMemory = 32 << 20

type CompareResponse struct {
	*report.Result
	ResultURL string `json:"resultURL,omitempty"`
}

type ErrorResponse struct {
	Error    string              `json:"error"`
	Offset   *diffimage.Position `json:"offset,omitempty"`
	Baseline *diffimage.Size     `json:"baseline,omitempty"`
	Target   *diffimage.Size     `json:"target,omitempty"`
}

// Compare handles a multipart form with "baseline" and "target" image files. storageClient
// may be nil, in which case results are not persisted.
func Compare(differ diffimage.Differ, storageClient storage.Storage, comparisons metric.Int64Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		opts, err := parseOptions(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		baseline, baselineName, err := formPicture(r, "baseline")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		target, targetName, err := formPicture(r, "target")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		result, err := differ.Compare(baseline.PixelGrid(), target.PixelGrid(), opts)
		if err != nil {
			var mismatch *diffimage.DimensionMismatchError
			if errors.As(err, &mismatch) {
				comparisons.Add(r.Context(), 1, metric.WithAttributes(attribute.Key("outcome").String("mismatch")))
				writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
					Error:    mismatch.Error(),
					Offset:   &mismatch.Offset,
					Baseline: &mismatch.Baseline,
					Target:   &mismatch.Target,
				})
				return
			}
			slog.Error(fmt.Sprintf("failed to compare images: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		outcome := "different"
		if result.Equal {
			outcome = "equal"
		}
		comparisons.Add(r.Context(), 1, metric.WithAttributes(attribute.Key("outcome").String(outcome)))

		now := time.Now()
		response := CompareResponse{
			Result: report.New(baselineName, targetName, opts, result, now),
		}

		if storageClient != nil {
			b, err := json.Marshal(response.Result)
			if err != nil {
				slog.Error(fmt.Sprintf("failed to marshal json: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			url, err := storageClient.Put(r.Context(), report.Key(baselineName, targetName, now), b)
			if err != nil {
				slog.Error(fmt.Sprintf("failed to store result: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.ResultURL = url
		}

		writeJSON(w, http.StatusOK, response)
	}
}

// Contains reports containment as not implemented instead of answering false.
func Contains() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: diffimage.ErrContainsNotSupported.Error()})
	}
}

func parseOptions(r *http.Request) (diffimage.Options, error) {
	var threshold float64
	if v := r.FormValue("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return diffimage.Options{}, fmt.Errorf("invalid threshold: %s", v)
		}
		threshold = f
	}

	var allowedDifferences int
	if v := r.FormValue("allowedDifferences"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return diffimage.Options{}, fmt.Errorf("invalid allowedDifferences: %s", v)
		}
		allowedDifferences = i
	}

	mode, err := config.ParseMode(r.FormValue("mode"), threshold, allowedDifferences)
	if err != nil {
		return diffimage.Options{}, err
	}

	offset := diffimage.Origin
	if x, y := r.FormValue("offsetX"), r.FormValue("offsetY"); x != "" || y != "" {
		if x == "" {
			x = "0"
		}
		if y == "" {
			y = "0"
		}
		offset, err = config.ParseOffset(x + "," + y)
		if err != nil {
			return diffimage.Options{}, err
		}
	}

	var lenient bool
	if v := r.FormValue("lenient"); v != "" {
		lenient, err = strconv.ParseBool(v)
		if err != nil {
			return diffimage.Options{}, fmt.Errorf("invalid lenient: %s", v)
		}
	}

	return diffimage.Options{
		Offset:  offset,
		Mode:    mode,
		Lenient: lenient,
	}, nil
}

func formPicture(r *http.Request, field string) (*picture.Picture, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %s file", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", field, err)
	}

	p, _, err := loader.Decode(header.Filename, data)
	if err != nil {
		return nil, "", fmt.Errorf("invalid %s image", field)
	}
	return p, header.Filename, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error(fmt.Sprintf("failed to marshal json: %s", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
