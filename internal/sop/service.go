package sop

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/pagination"
)

// Service implements the SOP business operations.
type Service struct {
	store   *Store
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewService creates a SOP Service.
func NewService(store *Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// ListingView is the compact SOP shape served by list endpoints.
type ListingView struct {
	SOPID     string `json:"sopID"`
	SOPName   string `json:"sopName"`
	JobName   string `json:"jobName"`
	AbendType string `json:"abendType"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	CreatedBy string `json:"createdBy"`
}

// DetailView is the full SOP shape.
type DetailView struct {
	SOPID                 string   `json:"sopID"`
	SOPName               string   `json:"sopName"`
	JobName               string   `json:"jobName"`
	AbendType             string   `json:"abendType"`
	SourceDocumentURL     string   `json:"sourceDocumentUrl"`
	ProcessedDocumentURLs []string `json:"processedDocumentUrls"`
	CreatedAt             string   `json:"createdAt"`
	UpdatedAt             string   `json:"updatedAt"`
	CreatedBy             string   `json:"createdBy"`
	UpdatedBy             string   `json:"updatedBy"`
	Generation            int      `json:"generation"`
}

// PageMeta mirrors the ABEND listing envelope.
type PageMeta struct {
	Total       int     `json:"total"`
	Limit       int32   `json:"limit"`
	HasNext     bool    `json:"hasNext"`
	HasPrevious bool    `json:"hasPrevious"`
	NextCursor  *string `json:"nextCursor"`
	PrevCursor  *string `json:"prevCursor"`
}

// ListResult is one SOP listing page.
type ListResult struct {
	Data []ListingView `json:"data"`
	Meta PageMeta      `json:"meta"`
}

// CreateInput holds the fields of a new SOP.
type CreateInput struct {
	SOPName               string
	JobName               string
	AbendType             string
	SourceDocumentURL     string
	ProcessedDocumentURLs []string
	CreatedBy             string
}

// Create registers a new SOP with generation 1.
func (s *Service) Create(ctx context.Context, in CreateInput) (*DetailView, error) {
	if in.CreatedBy == "" {
		in.CreatedBy = "system"
	}
	now := formatTimestamp(s.nowFunc())
	rec := Record{
		SOPID:                 NewSOPID(),
		RecordType:            RecordTypeSOP,
		SOPName:               in.SOPName,
		JobName:               in.JobName,
		AbendType:             in.AbendType,
		SourceDocumentURL:     in.SourceDocumentURL,
		ProcessedDocumentURLs: in.ProcessedDocumentURLs,
		CreatedAt:             now,
		UpdatedAt:             now,
		CreatedBy:             in.CreatedBy,
		UpdatedBy:             in.CreatedBy,
		Generation:            1,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	view := toDetailView(rec)
	return &view, nil
}

// Get fetches the full SOP shape. Returns (nil, nil) when not found.
func (s *Service) Get(ctx context.Context, sopID string) (*DetailView, error) {
	rec, err := s.store.GetByID(ctx, sopID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	view := toDetailView(*rec)
	return &view, nil
}

// UpdateFields applies a sparse field map. Returns (false, nil) when the SOP
// does not exist.
func (s *Service) UpdateFields(ctx context.Context, sopID string, updates map[string]interface{}, updatedBy string) (bool, error) {
	return s.store.UpdateFields(ctx, sopID, updates, updatedBy)
}

// ListParams carries a SOP listing request.
type ListParams struct {
	JobName   string
	AbendType string
	Search    string
	Limit     int32
	Cursor    *string
}

// List serves a filtered, cursor-paginated SOP listing.
func (s *Service) List(ctx context.Context, p ListParams) (*ListResult, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}

	cursor := pagination.Decode(p.Cursor)
	if p.Cursor != nil && cursor == nil {
		s.logger.Warn("ignoring undecodable sop cursor, serving first page")
	}

	records, next, err := s.store.List(ctx, p.JobName, p.AbendType, p.Search, p.Limit, cursor)
	if err != nil {
		return nil, err
	}

	nextCursor := pagination.Encode(next)
	hasNext := nextCursor != nil
	total := len(records)
	if hasNext {
		total += int(p.Limit)
	}

	views := make([]ListingView, 0, len(records))
	for _, rec := range records {
		views = append(views, toListingView(rec))
	}
	return &ListResult{
		Data: views,
		Meta: PageMeta{
			Total:       total,
			Limit:       p.Limit,
			HasNext:     hasNext,
			HasPrevious: p.Cursor != nil,
			NextCursor:  nextCursor,
			PrevCursor:  nil,
		},
	}, nil
}

// Delete is declared but unimplemented; callers translate ErrNotImplemented
// into a 501.
func (s *Service) Delete(ctx context.Context, sopID string) error {
	return s.store.Delete(ctx, sopID)
}

func toListingView(rec Record) ListingView {
	v := ListingView{
		SOPID:     rec.SOPID,
		SOPName:   rec.SOPName,
		JobName:   rec.JobName,
		AbendType: rec.AbendType,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		CreatedBy: rec.CreatedBy,
	}
	if v.CreatedBy == "" {
		v.CreatedBy = "system"
	}
	return v
}

func toDetailView(rec Record) DetailView {
	v := DetailView{
		SOPID:                 rec.SOPID,
		SOPName:               rec.SOPName,
		JobName:               rec.JobName,
		AbendType:             rec.AbendType,
		SourceDocumentURL:     rec.SourceDocumentURL,
		ProcessedDocumentURLs: rec.ProcessedDocumentURLs,
		CreatedAt:             rec.CreatedAt,
		UpdatedAt:             rec.UpdatedAt,
		CreatedBy:             rec.CreatedBy,
		UpdatedBy:             rec.UpdatedBy,
		Generation:            rec.Generation,
	}
	if v.ProcessedDocumentURLs == nil {
		v.ProcessedDocumentURLs = []string{}
	}
	if v.CreatedBy == "" {
		v.CreatedBy = "system"
	}
	if v.UpdatedBy == "" {
		v.UpdatedBy = "system"
	}
	if v.Generation == 0 {
		v.Generation = 1
	}
	return v
}
