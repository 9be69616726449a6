package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwantia/gocatalog/pkg/archive"
	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/mwantia/gocatalog/pkg/dedup"
	"github.com/mwantia/gocatalog/pkg/log"
	"github.com/mwantia/gocatalog/pkg/marketplace"
	"github.com/mwantia/gocatalog/pkg/textenc"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultUnsortedBucket = "Unsorted"

// Request describes a single archive to ingest
type Request struct {
	ArchivePath    string   `json:"archivePath"`
	MarketplaceURL string   `json:"marketplaceUrl,omitempty"`
	OutputDir      string   `json:"outputDir,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// EntryResult is the outcome for one archive entry
type EntryResult struct {
	EntryPath  string `json:"entryPath"`
	FilePath   string `json:"filePath,omitempty"`
	FileID     uint   `json:"fileId,omitempty"`
	Size       int64  `json:"fileSize,omitempty"`
	Hash       string `json:"fileHash,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Duplicates []uint `json:"duplicates,omitempty"`
	Error      string `json:"error,omitempty"`

	Err error `json:"-"`
}

func (r EntryResult) Registered() bool {
	return r.FileID != 0
}

// Result is the outcome for a whole archive
type Result struct {
	ArchivePath   string        `json:"archivePath"`
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	ShopName      string        `json:"shopName,omitempty"`
	ProductName   string        `json:"productName,omitempty"`
	Destination   string        `json:"destination,omitempty"`
	Entries       []EntryResult `json:"entries"`
	Registered    int           `json:"registered"`
	Failed        int           `json:"failed"`
	HasDuplicates bool          `json:"hasDuplicates"`

	Err error `json:"-"`
}

// Options configure where and how files are placed
type Options struct {
	Root           string
	UnsortedBucket string
	TagColor       string
	Workers        int
}

// Pipeline extracts archives into the managed library and registers every
// extracted file in the catalog.
type Pipeline struct {
	store    store.CatalogStore
	repos    *store.Repositories
	detector *dedup.Detector
	decoder  archive.Decoder
	fetcher  marketplace.Fetcher
	logger   log.LoggerService
	opts     Options
	locks    *pathLocks
}

func NewPipeline(catalog store.CatalogStore, repos *store.Repositories, decoder archive.Decoder, fetcher marketplace.Fetcher, logger log.LoggerService, opts Options) *Pipeline {
	if opts.UnsortedBucket == "" {
		opts.UnsortedBucket = DefaultUnsortedBucket
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if fetcher == nil {
		fetcher = marketplace.URLFetcher{}
	}
	if abs, err := filepath.Abs(opts.Root); err == nil && opts.Root != "" {
		opts.Root = abs
	}

	return &Pipeline{
		store:    catalog,
		repos:    repos,
		detector: dedup.NewDetector(repos.Files),
		decoder:  decoder,
		fetcher:  fetcher,
		logger:   logger.Named("ingest"),
		opts:     opts,
		locks:    newPathLocks(),
	}
}

// IngestBatch ingests several archives concurrently. Results keep the
// order of requests and a failing archive never affects its siblings.
func (p *Pipeline) IngestBatch(ctx context.Context, requests []Request) []Result {
	results := make([]Result, len(requests))

	workers := pool.New().WithMaxGoroutines(p.opts.Workers)
	for i, request := range requests {
		workers.Go(func() {
			results[i] = p.Ingest(ctx, request)
		})
	}
	workers.Wait()

	return results
}

// Ingest extracts a single archive
func (p *Pipeline) Ingest(ctx context.Context, request Request) Result {
	result := Result{
		ArchivePath: request.ArchivePath,
		Entries:     []EntryResult{},
	}

	stat, err := os.Stat(request.ArchivePath)
	if err == nil && stat.IsDir() {
		err = errors.New("is a directory")
	}
	if err != nil {
		return p.fail(result, &FilesystemError{Op: "open archive", Path: request.ArchivePath, Inner: err})
	}

	rawURL := strings.TrimSpace(request.MarketplaceURL)
	if rawURL != "" {
		if err := marketplace.ValidateURL(rawURL); err != nil {
			return p.fail(result, &store.ValidationError{Field: "marketplace url", Reason: err.Error()})
		}
	}

	info := p.resolveProduct(ctx, rawURL)
	destination, err := p.destination(request, info)
	if err != nil {
		return p.fail(result, err)
	}
	if info != nil {
		result.ShopName = info.ShopName
		result.ProductName = info.ProductName
	}
	result.Destination = destination

	decoded, err := p.decoder.Decode(ctx, request.ArchivePath)
	if err != nil {
		return p.fail(result, fmt.Errorf("failed to decode archive: %w", err))
	}
	defer decoded.Close()

	tags := p.collectTags(request.Tags, info)
	for _, entry := range decoded.Files() {
		entryResult := p.ingestEntry(ctx, request.ArchivePath, destination, rawURL, info, tags, entry)
		if entryResult.Err != nil {
			entryResult.Error = entryResult.Err.Error()
			result.Failed++
		} else {
			result.Registered++
		}
		if len(entryResult.Duplicates) > 0 {
			result.HasDuplicates = true
		}
		result.Entries = append(result.Entries, entryResult)
	}

	total := len(result.Entries)
	result.Success = total == 0 || result.Registered > 0
	result.Message = fmt.Sprintf("registered %d of %d files", result.Registered, total)
	if result.Failed > 0 {
		result.Message += fmt.Sprintf(", %d failed", result.Failed)
	}

	p.logger.Info("Ingested '%s' into '%s': %s", request.ArchivePath, destination, result.Message)
	return result
}

func (p *Pipeline) fail(result Result, err error) Result {
	p.logger.Error("Failed to ingest '%s': %v", result.ArchivePath, err)

	result.Success = false
	result.Message = err.Error()
	result.Err = err
	return result
}

// resolveProduct fetches product metadata and falls back to what the url itself reveals
func (p *Pipeline) resolveProduct(ctx context.Context, rawURL string) *marketplace.ProductInfo {
	if rawURL == "" {
		return nil
	}

	info, err := p.fetcher.Fetch(ctx, rawURL)
	if err == nil && info != nil && info.ShopName != "" && info.ProductName != "" {
		return info
	}
	if err != nil {
		p.logger.Warn("Unable to fetch product info for '%s': %v", rawURL, err)
	}

	fallback, err := marketplace.ParseURL(rawURL)
	if err != nil {
		p.logger.Warn("Unable to derive product info from '%s': %v", rawURL, err)
		return nil
	}
	return fallback
}

func (p *Pipeline) destination(request Request, info *marketplace.ProductInfo) (string, error) {
	root := p.opts.Root
	if request.OutputDir != "" {
		abs, err := filepath.Abs(request.OutputDir)
		if err != nil {
			return "", &FilesystemError{Op: "resolve output dir", Path: request.OutputDir, Inner: err}
		}
		root = abs
	}

	if info != nil {
		return filepath.Join(root, textenc.Sanitize(info.ShopName), textenc.Sanitize(info.ProductName)), nil
	}

	stem := strings.TrimSuffix(filepath.Base(request.ArchivePath), filepath.Ext(request.ArchivePath))
	return filepath.Join(root, p.opts.UnsortedBucket, textenc.Sanitize(stem)), nil
}

// collectTags merges explicit and marketplace tags, dropping names the tag policy rejects
func (p *Pipeline) collectTags(explicit []string, info *marketplace.ProductInfo) []string {
	candidates := append([]string(nil), explicit...)
	if info != nil {
		candidates = append(candidates, info.Tags...)
	}

	seen := make(map[string]struct{}, len(candidates))
	tags := make([]string, 0, len(candidates))
	for _, name := range candidates {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		if err := p.repos.Tags.ValidateName(name); err != nil {
			p.logger.Warn("Skipping tag '%s': %v", name, err)
			continue
		}
		tags = append(tags, name)
	}
	return tags
}

func (p *Pipeline) ingestEntry(ctx context.Context, archivePath, destination, rawURL string, info *marketplace.ProductInfo, tags []string, entry archive.Entry) EntryResult {
	result := EntryResult{
		EntryPath: entry.Path,
		Encoding:  entry.Encoding,
	}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	target, err := textenc.SafeJoin(destination, textenc.SanitizePath(entry.Path))
	if err != nil {
		result.Err = &FilesystemError{Op: "resolve", Path: entry.Path, Inner: err}
		p.logger.Warn("Rejected entry '%s' of '%s': %v", entry.Path, archivePath, err)
		return result
	}
	result.FilePath = target

	// held until the record is committed so a concurrent archive with the
	// same destination sees either the file or the record
	unlock := p.locks.lock(target)
	defer unlock()

	if err := p.checkConflict(ctx, target); err != nil {
		result.Err = err
		return result
	}

	reader, err := entry.Open()
	if err != nil {
		result.Err = &FilesystemError{Op: "read entry", Path: entry.Path, Inner: err}
		return result
	}
	hash, size, err := writeFile(target, reader)
	_ = reader.Close()
	if err != nil {
		result.Err = err
		return result
	}
	result.Hash = hash
	result.Size = size

	modified := entry.Modified
	if modified.IsZero() {
		modified = time.Now()
	}
	if err := os.Chtimes(target, modified, modified); err != nil {
		p.logger.Warn("Unable to keep modification time of '%s': %v", target, err)
		modified = time.Now()
	}

	duplicates, err := p.detector.CheckDuplicate(ctx, hash, 0)
	if err != nil {
		p.logger.Warn("Duplicate check for '%s' failed: %v", target, err)
	}
	for _, duplicate := range duplicates {
		result.Duplicates = append(result.Duplicates, duplicate.ID)
	}

	file := p.newFile(archivePath, target, rawURL, info, entry, size, hash, modified)
	id, err := p.register(ctx, file, tags)
	if err != nil {
		// The file stays on disk and shows up as an orphan on the next scan.
		p.logger.Error("Failed to register '%s': %v", target, err)
		result.Err = err
		return result
	}

	result.FileID = id
	p.logger.Debug("Registered '%s' as file %d", target, id)
	return result
}

func (p *Pipeline) checkConflict(ctx context.Context, target string) error {
	if _, err := os.Lstat(target); err == nil {
		return &store.ConflictError{Conflict: fmt.Sprintf("%s already exists on disk", target)}
	} else if !errors.Is(err, os.ErrNotExist) {
		return &FilesystemError{Op: "stat", Path: target, Inner: err}
	}

	_, err := p.repos.Files.FindByPath(ctx, target)
	switch {
	case err == nil:
		return &store.ConflictError{Conflict: fmt.Sprintf("%s is already cataloged", target)}
	case store.IsNotFound(err):
		return nil
	default:
		return err
	}
}

func (p *Pipeline) newFile(archivePath, target, rawURL string, info *marketplace.ProductInfo, entry archive.Entry, size int64, hash string, modified time.Time) *models.File {
	metadata := models.FileMetadata{
		Archive:   archivePath,
		EntryPath: entry.Path,
	}
	if entry.RawName != entry.Path {
		metadata.RawName = entry.RawName
	}
	encodedMetadata, _ := json.Marshal(metadata)

	file := &models.File{
		Path:       target,
		Name:       filepath.Base(target),
		Size:       size,
		Hash:       hash,
		ModifiedAt: modified.UTC(),
		Encoding:   entry.Encoding,
		Metadata:   datatypes.JSON(encodedMetadata),
	}
	if rawURL != "" {
		file.MarketplaceURL = &rawURL
		if id, ok := marketplace.ProductID(rawURL); ok {
			file.ProductID = &id
		}
	}
	if info != nil {
		file.ShopName = info.ShopName
		file.ProductName = info.ProductName
		file.Price = info.Price
		if info.ProductID != nil {
			file.ProductID = info.ProductID
		}
	}
	return file
}

// register creates the file record and links all tags in one transaction
func (p *Pipeline) register(ctx context.Context, file *models.File, tags []string) (uint, error) {
	var id uint
	err := p.store.Transaction(ctx, func(tx *gorm.DB) error {
		repos := p.repos.WithTx(tx)

		var err error
		id, err = repos.Files.Create(ctx, file)
		if err != nil {
			return err
		}

		for _, name := range tags {
			tag, err := repos.Tags.GetOrCreate(ctx, name, p.opts.TagColor)
			if err != nil {
				return err
			}
			if _, err := repos.Associations.Link(ctx, id, tag.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
