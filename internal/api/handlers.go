package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/eoset/internal/backend"
	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/internal/config"
	"github.com/robert-malhotra/eoset/internal/dataset"
	"github.com/robert-malhotra/eoset/internal/sensors"
	intstac "github.com/robert-malhotra/eoset/internal/stac"
)

// Handlers contains all HTTP handlers for the dataset API.
type Handlers struct {
	cfg     config.APIConfig
	remote  dataset.Materializer
	presets *sensors.Registry
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(
	cfg config.APIConfig,
	remote dataset.Materializer,
	presets *sensors.Registry,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		cfg:     cfg,
		remote:  remote,
		presets: presets,
		logger:  logger,
	}
}

// PresetSummary describes a preset.
type PresetSummary struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	SourceID    string          `json:"source_id"`
	Bands       []string        `json:"bands"`
	NativeBands []string        `json:"native_bands"`
	QA          string          `json:"qa,omitempty"`
	Catalog     sensors.Catalog `json:"catalog"`
}

// DatasetSummary describes a dataset and its metadata.
type DatasetSummary struct {
	Name     string      `json:"name"`
	SourceID string      `json:"source_id"`
	Bands    []string    `json:"bands"`
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
	BBox     []float64   `json:"bbox"`
	NImages  int         `json:"n_images"`
	Dates    []time.Time `json:"dates"`
}

// Health returns the health status of the service.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "ok",
		"backend": h.remote.Name(),
	}
	if s, ok := h.remote.(interface{ Stats() backend.Stats }); ok {
		response["stats"] = s.Stats()
	}

	WriteJSON(w, http.StatusOK, response)
}

// Presets lists the registered presets.
// GET /presets
func (h *Handlers) Presets(w http.ResponseWriter, r *http.Request) {
	all := h.presets.All()
	summaries := make([]PresetSummary, 0, len(all))
	for _, p := range all {
		summaries = append(summaries, presetSummary(p))
	}

	WriteJSON(w, http.StatusOK, map[string]any{"presets": summaries})
}

// Preset returns a single preset.
// GET /presets/{presetId}
func (h *Handlers) Preset(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, chi.URLParam(r, "presetId"))
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, presetSummary(p))
}

// Summary reports the bands, bounds and acquisition dates of a preset
// dataset.
// GET /presets/{presetId}/summary
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	d, ok := h.presetDataset(w, r, chi.URLParam(r, "presetId"))
	if !ok {
		return
	}

	summary, err := summarize(r.Context(), d)
	if err != nil {
		h.writeDatasetError(w, r, d.Name(), err)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// Items returns the records of a preset dataset as STAC items.
// GET /presets/{presetId}/items
func (h *Handlers) Items(w http.ResponseWriter, r *http.Request) {
	d, ok := h.presetDataset(w, r, chi.URLParam(r, "presetId"))
	if !ok {
		return
	}

	h.writeItems(w, r, d)
}

// Aggregate reduces a preset dataset over time buckets.
// GET /presets/{presetId}/aggregate
func (h *Handlers) Aggregate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.presetDataset(w, r, chi.URLParam(r, "presetId"))
	if !ok {
		return
	}

	q := r.URL.Query()
	reducer := q.Get(paramReducer)
	if reducer == "" {
		reducer = collection.ReducerMedian
	}

	dates, err := parseDates(q.Get(paramDates))
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	period, err := parseInt(paramPeriod, q.Get(paramPeriod), 1)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	agg, err := d.AggregateTime(reducer, dataset.WithDates(dates...), dataset.WithPeriod(period))
	if err != nil {
		h.writeDatasetError(w, r, d.Name(), err)
		return
	}

	h.writeItems(w, r, agg)
}

// Merge concatenates two preset datasets over the same region and window.
// GET /compose/merge?left={presetId}&right={presetId}
func (h *Handlers) Merge(w http.ResponseWriter, r *http.Request) {
	left, right, ok := h.pair(w, r)
	if !ok {
		return
	}

	merged, err := left.Merge(right)
	if err != nil {
		h.writeDatasetError(w, r, left.Name()+"+"+right.Name(), err)
		return
	}

	h.writeItems(w, r, merged)
}

// Join pairs the records of two preset datasets acquired close in time.
// GET /compose/join?left={presetId}&right={presetId}
func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	left, right, ok := h.pair(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	window, err := parseDuration(paramWindow, q.Get(paramWindow))
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	var opts []dataset.JoinOption
	if window > 0 {
		opts = append(opts, dataset.WithWindow(window))
	}
	if prefix := q.Get(paramPrefix); prefix != "" {
		opts = append(opts, dataset.WithPrefix(prefix))
	}

	joined, err := left.Join(right, opts...)
	if err != nil {
		h.writeDatasetError(w, r, left.Name()+"*"+right.Name(), err)
		return
	}

	h.writeItems(w, r, joined)
}

// lookup resolves a preset, writing a 404 when it is unknown.
func (h *Handlers) lookup(w http.ResponseWriter, id string) (sensors.Preset, bool) {
	if id == "" {
		WriteBadRequest(w, "preset ID is required")
		return sensors.Preset{}, false
	}
	p, ok := h.presets.Get(id)
	if !ok {
		WriteNotFound(w, fmt.Sprintf("preset %q not found", id))
		return sensors.Preset{}, false
	}
	return p, true
}

// presetDataset builds the dataset of a preset from the shared query
// parameters, applying the metadata filter when one is given.
func (h *Handlers) presetDataset(w http.ResponseWriter, r *http.Request, id string) (*dataset.Dataset, bool) {
	p, ok := h.lookup(w, id)
	if !ok {
		return nil, false
	}

	q, err := parseDatasetQuery(r.URL.Query())
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return nil, false
	}

	return h.build(w, r, p, q)
}

// pair builds the left and right datasets of a composition over the same
// query parameters.
func (h *Handlers) pair(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, *dataset.Dataset, bool) {
	params := r.URL.Query()
	if params.Get(paramLeft) == "" || params.Get(paramRight) == "" {
		WriteInvalidParameter(w, "left and right presets are required")
		return nil, nil, false
	}

	left, ok := h.lookup(w, params.Get(paramLeft))
	if !ok {
		return nil, nil, false
	}
	right, ok := h.lookup(w, params.Get(paramRight))
	if !ok {
		return nil, nil, false
	}

	q, err := parseDatasetQuery(params)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return nil, nil, false
	}

	l, ok := h.build(w, r, left, q)
	if !ok {
		return nil, nil, false
	}
	rt, ok := h.build(w, r, right, q)
	if !ok {
		return nil, nil, false
	}
	return l, rt, true
}

func (h *Handlers) build(w http.ResponseWriter, r *http.Request, p sensors.Preset, q *datasetQuery) (*dataset.Dataset, bool) {
	d, err := p.Dataset(h.remote, q.Region, q.Start, q.End,
		dataset.WithQA(q.QA),
		dataset.WithLogger(h.logger),
	)
	if err != nil {
		h.writeDatasetError(w, r, p.ID, err)
		return nil, false
	}

	if q.Filter != nil {
		d, err = d.FilterMetadata(q.Filter)
		if err != nil {
			h.writeDatasetError(w, r, p.ID, err)
			return nil, false
		}
	}
	return d, true
}

// writeItems materializes d and writes its records as an item collection.
func (h *Handlers) writeItems(w http.ResponseWriter, r *http.Request, d *dataset.Dataset) {
	limit, err := parseInt(paramLimit, r.URL.Query().Get(paramLimit), h.cfg.DefaultLimit)
	if err != nil || limit < 1 {
		WriteInvalidParameter(w, fmt.Sprintf("limit must be a positive integer, got %q", r.URL.Query().Get(paramLimit)))
		return
	}
	limit = min(limit, h.cfg.MaxLimit)

	records, err := d.Records(r.Context())
	if err != nil {
		h.writeDatasetError(w, r, d.Name(), err)
		return
	}

	matched := len(records)
	if len(records) > limit {
		records = records[:limit]
	}

	items := make([]*intstac.Item, 0, len(records))
	for _, rec := range records {
		item, err := intstac.RecordToItem(rec, d.Name())
		if err != nil {
			h.writeDatasetError(w, r, d.Name(), err)
			return
		}
		items = append(items, item)
	}

	ic := intstac.NewItemCollection(items)
	ic.NumberMatched = &matched
	ic.AddLink("self", r.URL.String(), "application/geo+json")

	WriteGeoJSON(w, http.StatusOK, ic)
}

// writeDatasetError logs err and writes it with the status it maps onto.
func (h *Handlers) writeDatasetError(w http.ResponseWriter, r *http.Request, name string, err error) {
	status, code := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "dataset request failed",
		slog.String("request_id", RequestID(r.Context())),
		slog.String("dataset", name),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	message := err.Error()
	if status == http.StatusBadGateway {
		message = "upstream catalog error"
	}
	WriteError(w, status, code, message)
}

func summarize(ctx context.Context, d *dataset.Dataset) (*DatasetSummary, error) {
	dates, err := d.Dates(ctx)
	if err != nil {
		return nil, err
	}

	bbox, err := d.Region().BBox()
	if err != nil {
		return nil, fmt.Errorf("dataset region: %w", err)
	}

	return &DatasetSummary{
		Name:     d.Name(),
		SourceID: d.SourceID(),
		Bands:    d.Bands(),
		Start:    d.Start(),
		End:      d.End(),
		BBox:     bbox,
		NImages:  len(dates),
		Dates:    dates,
	}, nil
}

func presetSummary(p sensors.Preset) PresetSummary {
	s := PresetSummary{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		SourceID:    p.Variant.SourceID,
		Bands:       p.Variant.Bands,
		NativeBands: p.Variant.Bands,
		Catalog:     p.Catalog,
	}
	if len(p.Variant.Rename) > 0 {
		s.Bands = make([]string, 0, len(p.Variant.Rename))
		for _, m := range p.Variant.Rename {
			s.Bands = append(s.Bands, m.To)
		}
	}
	if p.Variant.QA != nil {
		s.QA = p.Variant.QA.Name
	}
	return s
}
