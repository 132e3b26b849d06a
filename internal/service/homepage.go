package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phoebe/phoebe/internal/metrics"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

// Homepage assembly limits.
const (
	SimpleHomepageSize  = 10
	DefaultBlockNews    = 5
	MaxBlockNews        = 50
	maxConcurrentBlocks = 4
)

// Homepage is the assembled public homepage.
type Homepage struct {
	Mode   model.HomepageMode `json:"mode"`
	News   []*model.News      `json:"news,omitempty"`
	Blocks []HomepageBlock    `json:"blocks,omitempty"`
}

// HomepageBlock is a block with the news it displays.
type HomepageBlock struct {
	*model.HomePageBlock
	News []*model.News `json:"news,omitempty"`
}

// BlockInput defines the writable fields of a homepage block.
type BlockInput struct {
	Weight        int
	BlockType     model.BlockType
	TermIDs       []string
	NewsCount     int
	ShowTeaser    bool
	TitleFontSize string
	Content       string
}

// HomepageService manages homepage blocks and the homepage mode and
// assembles the public homepage.
type HomepageService struct {
	store   HomepageStore
	news    NewsStore
	terms   TermStore
	cache   HomepageCache
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewHomepageService creates a new HomepageService.
func NewHomepageService(store HomepageStore, news NewsStore, terms TermStore, cache HomepageCache, recorder metrics.Recorder, logger *slog.Logger) *HomepageService {
	if cache == nil {
		cache = noopHomepageCache{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HomepageService{
		store:   store,
		news:    news,
		terms:   terms,
		cache:   cache,
		metrics: recorder,
		logger:  logger,
	}
}

// CreateBlock stores a new block.
func (s *HomepageService) CreateBlock(ctx context.Context, input BlockInput) (*model.HomePageBlock, error) {
	now := time.Now().UTC()
	block := &model.HomePageBlock{ID: newID(), CreatedAt: now, UpdatedAt: now}
	if err := s.applyBlockInput(ctx, block, input); err != nil {
		return nil, err
	}

	if err := s.store.CreateBlock(ctx, block); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return block, nil
}

// GetBlock retrieves a block by ID.
func (s *HomepageService) GetBlock(ctx context.Context, id string) (*model.HomePageBlock, error) {
	block, err := s.store.GetBlockByID(ctx, id)
	if err != nil {
		return nil, mapBlockError(err)
	}
	return block, nil
}

// ListBlocks returns blocks ordered by weight.
func (s *HomepageService) ListBlocks(ctx context.Context) ([]*model.HomePageBlock, error) {
	return s.store.ListBlocks(ctx)
}

// UpdateBlock overwrites a block.
func (s *HomepageService) UpdateBlock(ctx context.Context, id string, input BlockInput) (*model.HomePageBlock, error) {
	block, err := s.store.GetBlockByID(ctx, id)
	if err != nil {
		return nil, mapBlockError(err)
	}
	if err := s.applyBlockInput(ctx, block, input); err != nil {
		return nil, err
	}
	block.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateBlock(ctx, block); err != nil {
		return nil, mapBlockError(err)
	}
	s.invalidate(ctx)
	return block, nil
}

// DeleteBlock removes a block.
func (s *HomepageService) DeleteBlock(ctx context.Context, id string) error {
	if err := s.store.DeleteBlock(ctx, id); err != nil {
		return mapBlockError(err)
	}
	s.invalidate(ctx)
	return nil
}

// GetMode returns the current homepage mode.
func (s *HomepageService) GetMode(ctx context.Context) (*model.HomepageSettings, error) {
	return s.store.GetHomepageSettings(ctx)
}

// SetMode switches the homepage mode. The mode name is case-insensitive.
func (s *HomepageService) SetMode(ctx context.Context, mode string) (*model.HomepageSettings, error) {
	m, ok := model.ParseHomepageMode(mode)
	if !ok {
		return nil, invalid("mode must be SIMPLE or BLOCKS")
	}

	settings := &model.HomepageSettings{Mode: m, UpdatedAt: time.Now().UTC()}
	if err := s.store.SaveHomepageSettings(ctx, settings); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.InfoContext(ctx, "homepage mode changed", slog.String("mode", string(m)))
	return settings, nil
}

// Build returns the public homepage as JSON, serving from cache when possible.
func (s *HomepageService) Build(ctx context.Context) ([]byte, error) {
	cached, err := s.cache.GetHomepage(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "homepage cache read failed", slog.String("error", err.Error()))
	}
	if cached != nil {
		return cached, nil
	}

	home, err := s.Assemble(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(home)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetHomepage(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "homepage cache write failed", slog.String("error", err.Error()))
	}
	return data, nil
}

// Assemble builds the homepage from storage. SIMPLE mode lists the latest
// published news. BLOCKS mode fills every news block concurrently.
func (s *HomepageService) Assemble(ctx context.Context) (*Homepage, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveHomepageBuild(time.Since(start))
	}()

	settings, err := s.store.GetHomepageSettings(ctx)
	if err != nil {
		return nil, err
	}

	if settings.Mode != model.HomepageModeBlocks {
		news, err := s.news.ListPublishedByTerms(ctx, nil, SimpleHomepageSize)
		if err != nil {
			return nil, err
		}
		if news == nil {
			news = []*model.News{}
		}
		return &Homepage{Mode: model.HomepageModeSimple, News: news}, nil
	}

	blocks, err := s.store.ListBlocks(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]HomepageBlock, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBlocks)
	for i, b := range blocks {
		out[i] = HomepageBlock{HomePageBlock: b}
		if b.BlockType != model.BlockTypeNews {
			continue
		}
		g.Go(func() error {
			news, err := s.news.ListPublishedByTerms(gctx, b.TermIDs, b.NewsCount)
			if err != nil {
				return err
			}
			if !b.ShowTeaser {
				news = withoutTeasers(news)
			}
			out[i].News = news
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Homepage{Mode: model.HomepageModeBlocks, Blocks: out}, nil
}

func (s *HomepageService) applyBlockInput(ctx context.Context, block *model.HomePageBlock, input BlockInput) error {
	if !input.BlockType.IsValid() {
		return invalid("block_type must be NEWS_BLOCK or WIDGET_BLOCK")
	}

	block.Weight = input.Weight
	block.BlockType = input.BlockType
	block.TitleFontSize = strings.TrimSpace(input.TitleFontSize)
	block.ShowTeaser = input.ShowTeaser

	switch input.BlockType {
	case model.BlockTypeNews:
		count := input.NewsCount
		if count == 0 {
			count = DefaultBlockNews
		}
		if count < 1 || count > MaxBlockNews {
			return invalid("news_count must be between 1 and %d", MaxBlockNews)
		}
		ids := uniqueStrings(input.TermIDs)
		if len(ids) > 0 {
			terms, err := s.terms.GetTermsByIDs(ctx, ids)
			if err != nil {
				return err
			}
			if len(terms) != len(ids) {
				return invalid("unknown term id")
			}
		}
		block.NewsCount = count
		block.TermIDs = ids
		block.Content = ""
	case model.BlockTypeWidget:
		if strings.TrimSpace(input.Content) == "" {
			return invalid("content is required for WIDGET_BLOCK")
		}
		block.Content = input.Content
		block.NewsCount = 0
		block.TermIDs = []string{}
	}
	return nil
}

func (s *HomepageService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateHomepage(ctx); err != nil {
		s.logger.WarnContext(ctx, "homepage cache invalidation failed", slog.String("error", err.Error()))
	}
}

func withoutTeasers(items []*model.News) []*model.News {
	out := make([]*model.News, len(items))
	for i, n := range items {
		c := *n
		c.Teaser = ""
		out[i] = &c
	}
	return out
}

func mapBlockError(err error) error {
	if errors.Is(err, repository.ErrBlockNotFound) {
		return ErrNotFound
	}
	return err
}
