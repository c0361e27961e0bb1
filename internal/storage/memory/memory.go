// Package memory implements every storage port in process memory. It backs
// the test suites and the local single-node runner.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/landgraph/landcrawler/internal/land"
)

// Store holds all tables behind one mutex. Operations are race-safe; the
// get-or-create paths resolve duplicate inserts to the existing row.
type Store struct {
	mu sync.Mutex

	lands map[int64]land.Land
	dicts map[int64]land.Dictionary

	exprs     map[int64]land.Expression
	exprByKey map[string]int64

	domains      map[string]land.Domain
	nextDomainID int64

	links map[string]land.Link

	media map[int64][]land.Media

	jobs map[string]land.Job

	archive map[string][]byte

	nextExprID int64
	nextLinkID int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		lands:     make(map[int64]land.Land),
		dicts:     make(map[int64]land.Dictionary),
		exprs:     make(map[int64]land.Expression),
		exprByKey: make(map[string]int64),
		domains:   make(map[string]land.Domain),
		links:     make(map[string]land.Link),
		media:     make(map[int64][]land.Media),
		jobs:      make(map[string]land.Job),
		archive:   make(map[string][]byte),
	}
}

// AddLand registers a land with its dictionary. Test and local-run setup.
func (s *Store) AddLand(ld land.Land, dict land.Dictionary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lands[ld.ID] = ld
	s.dicts[ld.ID] = dict
}

// GetLand returns one land. Exposed through Lands to satisfy
// land.LandStore without colliding with the expression Get.
func (s *Store) GetLand(_ context.Context, landID int64) (land.Land, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ld, ok := s.lands[landID]
	if !ok {
		return land.Land{}, fmt.Errorf("land %d: %w", landID, land.ErrNotFound)
	}
	return ld, nil
}

// GetDictionary implements land.LandStore.
func (s *Store) GetDictionary(_ context.Context, landID int64) (land.Dictionary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dict, ok := s.dicts[landID]
	if !ok {
		return nil, fmt.Errorf("dictionary for land %d: %w", landID, land.ErrNotFound)
	}
	return dict, nil
}

// GetOrCreate implements land.ExpressionStore.
func (s *Store) GetOrCreate(_ context.Context, landID int64, url string, depth int, domainID int64) (land.Expression, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := land.HashURL(url)
	key := exprKey(landID, hash)
	if id, ok := s.exprByKey[key]; ok {
		return s.exprs[id], false, nil
	}

	s.nextExprID++
	expr := land.Expression{
		ID:        s.nextExprID,
		LandID:    landID,
		DomainID:  domainID,
		URL:       url,
		URLHash:   hash,
		Depth:     depth,
		CreatedAt: time.Now(),
	}
	s.exprs[expr.ID] = expr
	s.exprByKey[key] = expr.ID
	return expr, true, nil
}

// Find implements land.ExpressionStore.
func (s *Store) Find(_ context.Context, landID int64, urlHash string) (land.Expression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.exprByKey[exprKey(landID, urlHash)]
	if !ok {
		return land.Expression{}, land.ErrNotFound
	}
	return s.exprs[id], nil
}

// Get implements land.ExpressionStore.
func (s *Store) Get(_ context.Context, id int64) (land.Expression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expr, ok := s.exprs[id]
	if !ok {
		return land.Expression{}, fmt.Errorf("expression %d: %w", id, land.ErrNotFound)
	}
	return expr, nil
}

// Update implements land.ExpressionStore.
func (s *Store) Update(_ context.Context, expr land.Expression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exprs[expr.ID]; !ok {
		return fmt.Errorf("expression %d: %w", expr.ID, land.ErrNotFound)
	}
	s.exprs[expr.ID] = expr
	return nil
}

// ListCandidates implements land.ExpressionStore: unfetched expressions, or
// expressions whose recorded status matches the filter, ordered by depth
// then id.
func (s *Store) ListCandidates(_ context.Context, filter land.CandidateFilter) ([]land.Expression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []land.Expression
	for _, expr := range s.exprs {
		if expr.LandID != filter.LandID {
			continue
		}
		if filter.Depth != nil && expr.Depth != *filter.Depth {
			continue
		}
		if filter.HTTPStatus != "" {
			if fmt.Sprintf("%d", expr.HTTPStatus) != filter.HTTPStatus {
				continue
			}
		} else if expr.FetchedAt != nil {
			continue
		}
		out = append(out, expr)
	}
	sortExpressions(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListReadable implements land.ExpressionStore.
func (s *Store) ListReadable(_ context.Context, landID int64, depth *int, limit int) ([]land.Expression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []land.Expression
	for _, expr := range s.exprs {
		if expr.LandID != landID || expr.ReadableAt == nil {
			continue
		}
		if depth != nil && expr.Depth != *depth {
			continue
		}
		out = append(out, expr)
	}
	sortExpressions(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByLand implements land.ExpressionStore.
func (s *Store) CountByLand(_ context.Context, landID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, expr := range s.exprs {
		if expr.LandID == landID {
			n++
		}
	}
	return n, nil
}

// GetOrCreate implements land.DomainStore.
func (s *Store) GetOrCreateDomain(_ context.Context, landID int64, name string) (land.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%d|%s", landID, name)
	if d, ok := s.domains[key]; ok {
		return d, nil
	}
	s.nextDomainID++
	d := land.Domain{ID: s.nextDomainID, LandID: landID, Name: name}
	s.domains[key] = d
	return d, nil
}

// CreateIfAbsent implements land.LinkStore.
func (s *Store) CreateIfAbsent(_ context.Context, link land.Link) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%d|%d", link.SourceID, link.TargetID)
	if _, ok := s.links[key]; ok {
		return false, nil
	}
	s.nextLinkID++
	link.ID = s.nextLinkID
	s.links[key] = link
	return true, nil
}

// DeleteAllForSource implements land.LinkStore.
func (s *Store) DeleteAllForSource(_ context.Context, sourceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, link := range s.links {
		if link.SourceID == sourceID {
			delete(s.links, key)
		}
	}
	return nil
}

// Links returns every stored edge, sorted by id. Test helper.
func (s *Store) Links() []land.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]land.Link, 0, len(s.links))
	for _, link := range s.links {
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Exists implements land.MediaStore.
func (s *Store) Exists(_ context.Context, expressionID int64, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.media[expressionID] {
		if m.URL == url {
			return true, nil
		}
	}
	return false, nil
}

// Create implements land.MediaStore.
func (s *Store) Create(_ context.Context, media land.Media) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[media.ExpressionID] = append(s.media[media.ExpressionID], media)
	return nil
}

// DeleteAllForExpression implements land.MediaStore.
func (s *Store) DeleteAllForExpression(_ context.Context, expressionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.media, expressionID)
	return nil
}

// Media returns the stored media of one expression. Test helper.
func (s *Store) Media(expressionID int64) []land.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]land.Media(nil), s.media[expressionID]...)
}

// UpdateStatus implements land.JobStore.
func (s *Store) UpdateStatus(_ context.Context, jobID string, status land.JobStatus, result *land.JobResult, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = land.Job{
		ID:      jobID,
		Status:  status,
		Result:  result,
		Error:   errText,
		Updated: time.Now(),
	}
	return nil
}

// GetJob implements land.JobStore.
func (s *Store) GetJob(_ context.Context, jobID string) (land.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return land.Job{}, fmt.Errorf("job %s: %w", jobID, land.ErrNotFound)
	}
	return job, nil
}

// WithinTx implements land.Tx. The memory store is not transactional; fn
// simply runs against the shared maps.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Store implements land.ArchiveStore.
func (s *Store) Store(_ context.Context, landID int64, urlHash string, html []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive[exprKey(landID, urlHash)] = append([]byte(nil), html...)
	return nil
}

// Load implements land.ArchiveStore.
func (s *Store) Load(_ context.Context, landID int64, urlHash string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	html, ok := s.archive[exprKey(landID, urlHash)]
	if !ok {
		return nil, land.ErrNotFound
	}
	return append([]byte(nil), html...), nil
}

// Domains adapts the store to the land.DomainStore interface, whose method
// name collides with the expression GetOrCreate.
func (s *Store) Domains() land.DomainStore { return domainView{s} }

type domainView struct{ s *Store }

func (v domainView) GetOrCreate(ctx context.Context, landID int64, name string) (land.Domain, error) {
	return v.s.GetOrCreateDomain(ctx, landID, name)
}

// Lands adapts the store to the land.LandStore interface, whose Get method
// name collides with the expression accessor.
func (s *Store) Lands() land.LandStore { return landView{s} }

type landView struct{ s *Store }

func (v landView) Get(ctx context.Context, landID int64) (land.Land, error) {
	return v.s.GetLand(ctx, landID)
}

func (v landView) GetDictionary(ctx context.Context, landID int64) (land.Dictionary, error) {
	return v.s.GetDictionary(ctx, landID)
}

func exprKey(landID int64, hash string) string {
	return fmt.Sprintf("%d|%s", landID, hash)
}

func sortExpressions(exprs []land.Expression) {
	sort.Slice(exprs, func(i, j int) bool {
		if exprs[i].Depth != exprs[j].Depth {
			return exprs[i].Depth < exprs[j].Depth
		}
		return exprs[i].ID < exprs[j].ID
	})
}
