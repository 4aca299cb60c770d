package index

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"vybe/internal/chunker"
	"vybe/internal/embedder"
	"vybe/internal/store"
	"vybe/internal/walker"
)

const embedBatchSize = 32

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8000

// Stats reports indexing results.
type Stats struct {
	FilesTotal      int
	FilesIndexed    int
	FilesDiscovered int
	FilesSkipped    int
	FilesDeleted    int
	ChunksTotal     int
}

// ProgressFunc receives pipeline progress. total grows while the walk is
// still discovering files.
type ProgressFunc func(stage string, done, total int)

// fileWork is a file that needs to be (re-)indexed.
type fileWork struct {
	info walker.FileInfo
	key  string
	hash string
	lang string
	src  []byte
}

// chunkBatch is the chunks extracted from a single file.
type chunkBatch struct {
	work   fileWork
	chunks []chunker.RawChunk
}

// embeddedBatch has chunks with their embeddings ready to store. A nil
// embeddings slice means embedding failed and the file stays discovered.
type embeddedBatch struct {
	work       fileWork
	chunks     []chunker.RawChunk
	embeddings [][]float32
}

type pipeline struct {
	store       store.Store
	chunker     *chunker.ASTChunker
	registry    *chunker.Registry
	embedder    embedder.Embedder
	workspaceID string
	rootID      string
	workers     int
	walkOpts    walker.Options
	logger      *slog.Logger
	now         func() time.Time
	onProgress  ProgressFunc
}

func (p *pipeline) run(ctx context.Context, root string) (*Stats, error) {
	numWorkers := p.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	known, err := p.store.ListFileHashes(ctx, p.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list file hashes: %w", err)
	}

	var stats Stats
	var filesTotal atomic.Int64
	var keepMu sync.Mutex
	keep := make(map[string]bool)

	// Stage 1: Walk
	fileCh, walkErrCh := walker.Walk(ctx, root, p.walkOpts)

	// Stage 2: Hash + check (N workers)
	workCh := make(chan fileWork, numWorkers)
	var hashWg sync.WaitGroup
	for range numWorkers {
		hashWg.Add(1)
		go func() {
			defer hashWg.Done()
			for fi := range fileCh {
				filesTotal.Add(1)
				key := p.rootID + "/" + fi.RelPath
				keepMu.Lock()
				keep[key] = true
				keepMu.Unlock()

				src, err := os.ReadFile(fi.Path)
				if err != nil {
					p.logger.Warn("read file", "path", fi.RelPath, "error", err)
					continue
				}
				if bytes.IndexByte(src[:min(len(src), binarySniffLen)], 0) >= 0 {
					continue
				}
				h := sha256.Sum256(src)
				hash := hex.EncodeToString(h[:])
				if known[key] == hash {
					continue // unchanged
				}

				workCh <- fileWork{
					info: fi,
					key:  key,
					hash: hash,
					lang: p.registry.LanguageID(fi.Path),
					src:  src,
				}
			}
		}()
	}
	go func() {
		hashWg.Wait()
		close(workCh)
	}()

	// Stage 3: Chunk (N workers)
	chunkCh := make(chan chunkBatch, numWorkers)
	var chunkWg sync.WaitGroup
	for range numWorkers {
		chunkWg.Add(1)
		go func() {
			defer chunkWg.Done()
			for w := range workCh {
				chunks, err := p.chunker.Chunk(ctx, w.info.RelPath, w.src)
				if err != nil {
					p.logger.Warn("chunk file", "path", w.info.RelPath, "error", err)
					continue
				}
				if len(chunks) > 0 {
					chunkCh <- chunkBatch{work: w, chunks: chunks}
				}
			}
		}()
	}
	go func() {
		chunkWg.Wait()
		close(chunkCh)
	}()

	// Stage 4: Embed (1 worker, batches of embedBatchSize)
	embeddedCh := make(chan embeddedBatch, 4)
	var lastEmbedErr error
	go func() {
		defer close(embeddedCh)
		for batch := range chunkCh {
			if ctx.Err() != nil {
				continue // drain
			}
			embs, err := p.embed(ctx, batch.chunks)
			if err != nil {
				p.logger.Warn("embed file", "path", batch.work.info.RelPath, "error", err)
				lastEmbedErr = err
			}
			embeddedCh <- embeddedBatch{work: batch.work, chunks: batch.chunks, embeddings: embs}
		}
	}()

	// Stage 5: Store (this goroutine)
	var storeErr error
	for eb := range embeddedCh {
		n, err := p.storeFile(ctx, eb)
		if err != nil {
			p.logger.Error("store file", "path", eb.work.key, "error", err)
			storeErr = err
			continue
		}
		if eb.embeddings != nil {
			stats.FilesIndexed++
		} else {
			stats.FilesDiscovered++
		}
		stats.ChunksTotal += n
		if p.onProgress != nil {
			p.onProgress("Indexing files...", stats.FilesIndexed+stats.FilesDiscovered, int(filesTotal.Load()))
		}
	}

	if err := <-walkErrCh; err != nil {
		return nil, fmt.Errorf("walk error: %w", err)
	}
	// A partial walk must not mark unseen files deleted.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deleted, err := p.store.MarkDeleted(ctx, p.workspaceID, p.rootID+"/", keep)
	if err != nil {
		return nil, fmt.Errorf("mark deleted files: %w", err)
	}

	stats.FilesDeleted = deleted
	stats.FilesTotal = int(filesTotal.Load())
	stats.FilesSkipped = stats.FilesTotal - stats.FilesIndexed - stats.FilesDiscovered

	if storeErr != nil {
		return &stats, fmt.Errorf("storage failed: %w", storeErr)
	}
	if lastEmbedErr != nil && stats.FilesIndexed == 0 {
		return &stats, fmt.Errorf("embedding failed: %w", lastEmbedErr)
	}
	return &stats, nil
}

// embed embeds chunk contents in sub-batches of embedBatchSize.
func (p *pipeline) embed(ctx context.Context, chunks []chunker.RawChunk) ([][]float32, error) {
	if p.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embedBatchSize {
		end := min(i+embedBatchSize, len(texts))
		embs, err := p.embedder.Embed(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, embs...)
	}
	return all, nil
}

// storeFile replaces the file row and its chunks, returning the chunk count.
func (p *pipeline) storeFile(ctx context.Context, eb embeddedBatch) (int, error) {
	rec := store.FileRecord{
		Path:       eb.work.key,
		Hash:       eb.work.hash,
		Status:     store.StatusDiscovered,
		Size:       eb.work.info.Size,
		LanguageID: eb.work.lang,
		FolderPath: path.Dir(eb.work.key),
	}
	if eb.embeddings != nil {
		rec.Status = store.StatusIndexed
		rec.LastIndexed = mo.Some(p.now())
	} else {
		// Leave the hash empty so the next run retries embedding.
		rec.Hash = ""
	}
	if err := p.store.UpsertFile(ctx, p.workspaceID, rec); err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}

	chunks := make([]store.Chunk, len(eb.chunks))
	for i, c := range eb.chunks {
		chunks[i] = store.Chunk{
			ChunkID:   uuid.NewString(),
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Content:   c.Content,
		}
	}
	rowIDs, err := p.store.InsertChunks(ctx, p.workspaceID, eb.work.key, chunks)
	if err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}
	if eb.embeddings != nil {
		if err := p.store.InsertEmbeddings(ctx, rowIDs, eb.embeddings); err != nil {
			return 0, fmt.Errorf("insert embeddings: %w", err)
		}
	}
	return len(chunks), nil
}
