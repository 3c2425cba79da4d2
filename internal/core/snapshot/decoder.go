package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/logger"
)

type decodeJob struct {
	ctx    context.Context
	h264   []byte
	result chan decodeResult
}

type decodeResult struct {
	jpeg []byte
	err  error
}

// decodePool runs H.264-access-unit-to-JPEG decodes on a small fixed set of
// goroutines, shelling out to ffmpeg per job, so a slow decode never shares
// a goroutine budget with pipe readers or HTTP handlers.
type decodePool struct {
	jobs chan decodeJob
	wg   sync.WaitGroup
	cfg  config.SnapshotConfig
	log  *logger.Logger
}

func newDecodePool(cfg config.SnapshotConfig, log *logger.Logger) *decodePool {
	size := cfg.WorkerPoolSize
	if size <= 0 {
		size = 2
	}

	p := &decodePool{
		jobs: make(chan decodeJob, size*4),
		cfg:  cfg,
		log:  log,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *decodePool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		jpeg, err := p.runFFmpeg(job.ctx, job.h264)
		job.result <- decodeResult{jpeg: jpeg, err: err}
	}
}

func (p *decodePool) decode(ctx context.Context, h264 []byte) ([]byte, error) {
	result := make(chan decodeResult, 1)
	job := decodeJob{ctx: ctx, h264: h264, result: result}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-result:
		return r.jpeg, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *decodePool) close() {
	close(p.jobs)
	p.wg.Wait()
}

// runFFmpeg decodes one raw H.264 Annex-B access unit to a single MJPEG
// frame, quality scale 2..=31 (lower is better).
func (p *decodePool) runFFmpeg(ctx context.Context, h264 []byte) ([]byte, error) {
	quality := p.cfg.JPEGQuality
	if quality <= 0 {
		quality = 2
	}

	ffmpegPath := p.cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-f", "h264", "-i", "pipe:0",
		"-frames:v", "1",
		"-f", "image2", "-c:v", "mjpeg", "-q:v", fmt.Sprintf("%d", quality),
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(h264)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w: %s", err, stderr.String())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output: %s", stderr.String())
	}

	return stdout.Bytes(), nil
}
