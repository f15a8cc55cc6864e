// Package probe validates live-stream endpoints. A probe runs up to five
// stages against one URL: manifest fetch (with single-level variant follow),
// structure validation, segment reachability, throughput measurement, and
// channel name extraction. MP4 URLs get a dedicated header/magic-byte check
// instead.
package probe

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"

	"github.com/jmylchreest/checkarr/internal/config"
	"github.com/jmylchreest/checkarr/internal/httpclient"
	"github.com/jmylchreest/checkarr/internal/models"
	"github.com/jmylchreest/checkarr/internal/observability"
)

const connectTimeoutManifest = 2 * time.Second
const connectTimeoutSegment = 1 * time.Second

var (
	variantPattern    = regexp.MustCompile(`#EXT-X-STREAM-INF:.*\r?\n(.+)`)
	resolutionPattern = regexp.MustCompile(`RESOLUTION=(\d+x\d+)`)
	extinfNamePattern = regexp.MustCompile(`(?i)^#EXTINF:\s*-?\d+\.?\d*\s*(?:.*?tvg-name=['"]?([^'",#]+)['"]?)?[^,]*,\s*(.*?)\s*$`)
	dispositionValue  = regexp.MustCompile(`filename=(.+)`)
)

// mp4 containers open with a 24- or 32-byte ftyp box.
var mp4Magic = [][]byte{
	{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'},
	{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p'},
}

// Prober validates stream endpoints against its configured budgets.
type Prober struct {
	cfg    config.ProbeConfig
	logger *slog.Logger

	manifestClient *httpclient.Client
	segmentClient  *httpclient.Client
	mp4Client      *httpclient.Client
}

// New creates a prober. Each stage gets a client with the connect/total
// budget split the stage requires.
func New(cfg config.ProbeConfig, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	logger = observability.WithComponent(logger, "probe")

	newClient := func(connect, total time.Duration, maxSize int64) *httpclient.Client {
		c := httpclient.DefaultConfig()
		c.ConnectTimeout = connect
		c.Timeout = total
		c.MaxResponseSize = maxSize
		c.RetryAttempts = 0
		c.Logger = logger
		if cfg.UserAgent != "" {
			c.UserAgent = cfg.UserAgent
		}
		return httpclient.New(c)
	}

	total := cfg.RequestTimeout
	return &Prober{
		cfg:            cfg,
		logger:         logger,
		manifestClient: newClient(connectTimeoutManifest, total-connectTimeoutManifest, cfg.MaxManifestSize.Bytes()),
		segmentClient:  newClient(connectTimeoutSegment, total-connectTimeoutSegment, 0),
		mp4Client:      newClient(0, total, 0),
	}
}

// Check validates one endpoint. Deep mode runs the full stage pipeline;
// shallow mode stops after the manifest fetch. Network and parse errors
// never escape: they convert to a false verdict. The whole invocation is
// bounded by the configured hard timeout.
func (p *Prober) Check(ctx context.Context, ch *models.Channel, ep *models.Endpoint, deep bool) bool {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.HardTimeout)
	defer cancel()

	streamURL := ep.URL()
	logger := observability.WithURL(p.logger, streamURL)
	if ch != nil && ch.Name() != "" {
		logger = observability.WithChannel(logger, ch.Name())
	}

	if strings.HasSuffix(streamURL, ".mp4") {
		return p.checkMP4(ctx, streamURL)
	}
	if !strings.Contains(streamURL, ".m3u8") {
		return false
	}

	manifest, ok := p.fetchManifest(ctx, ep)
	if !ok {
		return false
	}
	if !deep {
		return true
	}

	if valid, reason := validateStructure(manifest); !valid {
		logger.Debug("manifest structure invalid", slog.String("reason", reason))
		return false
	}

	reachable := p.checkSegments(ctx, ep.URL(), segmentURIs(manifest))
	if len(reachable) == 0 {
		logger.Debug("no reachable segments")
		return false
	}

	ep.SetSpeed(p.benchmark(ctx, reachable))

	if ch != nil && ch.Name() == "" {
		ch.SetName(p.extractName(ctx, manifest, ep.URL()))
	}
	return true
}

// checkMP4 validates a direct MP4 URL: headers first, then the leading
// bytes of the body must carry an ftyp box.
func (p *Prober) checkMP4(ctx context.Context, streamURL string) bool {
	resp, err := p.mp4Client.Head(ctx, streamURL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "video/mp4") {
		return false
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n < 1024 {
			return false
		}
	}

	body, err := p.mp4Client.Get(ctx, streamURL)
	if err != nil {
		return false
	}
	defer body.Body.Close()
	if body.StatusCode < 200 || body.StatusCode >= 300 {
		return false
	}

	head := make([]byte, 8)
	n, _ := io.ReadFull(body.Body, head)
	head = head[:n]
	for _, magic := range mp4Magic {
		if bytes.Contains(head, magic) {
			return true
		}
	}
	return false
}

// fetchManifest retrieves the playlist. A multivariant playlist is followed
// one level deep: the endpoint URL is rewritten to each variant in turn and
// the first variant that fetches wins; variant follow failures move on to
// the next variant line.
func (p *Prober) fetchManifest(ctx context.Context, ep *models.Endpoint) (string, bool) {
	content, ok := p.getText(ctx, ep.URL())
	if !ok {
		return "", false
	}

	if strings.Contains(content, "#EXT-X-STREAM-INF") {
		parent := ep.URL()
		for _, match := range variantPattern.FindAllStringSubmatch(content, -1) {
			child := strings.TrimSpace(match[1])
			resolved := resolveURL(parent, child)
			if resolved == "" {
				continue
			}
			ep.SetURL(resolved)
			if res := resolutionPattern.FindStringSubmatch(match[0]); res != nil {
				ep.SetResolution(res[1])
			}
			if childContent, ok := p.getText(ctx, resolved); ok {
				return childContent, true
			}
		}
		return "", false
	}
	return content, true
}

func (p *Prober) getText(ctx context.Context, streamURL string) (string, bool) {
	resp, err := p.manifestClient.Get(ctx, streamURL)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// validateStructure enforces the minimal tag set of a playable manifest.
func validateStructure(manifest string) (bool, string) {
	if !strings.HasPrefix(manifest, "#EXTM3U") {
		return false, "missing #EXTM3U header"
	}
	var missing []string
	for _, tag := range []string{"#EXT-X-VERSION", "#EXT-X-MEDIA-SEQUENCE"} {
		if !strings.Contains(manifest, tag) {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return false, "missing required tags: " + strings.Join(missing, ", ")
	}
	return true, ""
}

// segmentURIs extracts segment URIs via the HLS playlist parser, falling
// back to a raw line scan when the manifest is too loose to parse.
func segmentURIs(manifest string) []string {
	if pl, err := playlist.Unmarshal([]byte(manifest)); err == nil {
		if media, ok := pl.(*playlist.Media); ok {
			uris := make([]string, 0, len(media.Segments))
			for _, seg := range media.Segments {
				uris = append(uris, seg.URI)
			}
			return uris
		}
	}

	var uris []string
	for _, line := range strings.Split(manifest, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uris = append(uris, line)
	}
	return uris
}

// checkSegments HEADs the first few segments in parallel and returns the
// reachable URLs in completion order.
func (p *Prober) checkSegments(ctx context.Context, manifestURL string, uris []string) []string {
	count := len(uris)
	if count > p.cfg.SegmentTestCount {
		count = p.cfg.SegmentTestCount
	}
	if count == 0 {
		return nil
	}

	results := make(chan string, count)
	var wg sync.WaitGroup
	for _, uri := range uris[:count] {
		full := resolveURL(manifestURL, uri)
		if full == "" {
			continue
		}
		wg.Add(1)
		go func(segURL string) {
			defer wg.Done()
			resp, err := p.segmentClient.Head(ctx, segURL)
			if err != nil {
				return
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				results <- segURL
			}
		}(full)
	}
	wg.Wait()
	close(results)

	var reachable []string
	for segURL := range results {
		reachable = append(reachable, segURL)
	}
	return reachable
}

// benchmark streams the reachable segments sequentially, reading up to the
// configured number of fixed-size chunks, and returns the throughput in
// KB/s. The clock covers only the read loops.
func (p *Prober) benchmark(ctx context.Context, segURLs []string) float64 {
	var totalBytes int64
	var totalTime time.Duration

	for _, segURL := range segURLs {
		resp, err := p.segmentClient.Get(ctx, segURL)
		if err != nil {
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			continue
		}

		buf := make([]byte, p.cfg.BenchmarkChunkSize)
		start := time.Now()
		for i := 0; i < p.cfg.BenchmarkChunks; i++ {
			n, err := io.ReadFull(resp.Body, buf)
			totalBytes += int64(n)
			if err != nil {
				break
			}
		}
		totalTime += time.Since(start)
		resp.Body.Close()
	}

	seconds := totalTime.Seconds()
	if seconds == 0 {
		return 0
	}
	return (float64(totalBytes) / seconds) / 1024
}

// extractName recovers a channel name from the manifest metadata, or from
// the Content-Disposition filename as a last resort. The whole extraction
// is capped by the name timeout.
func (p *Prober) extractName(ctx context.Context, manifest, streamURL string) string {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.NameTimeout)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		if name := nameFromExtinf(manifest); name != "" {
			done <- name
			return
		}
		done <- p.nameFromDisposition(ctx, streamURL)
	}()

	select {
	case name := <-done:
		return name
	case <-ctx.Done():
		return ""
	}
}

// nameFromExtinf prefers the first tvg-name attribute; failing that it
// returns the longest display name whose cleaned form is non-empty.
func nameFromExtinf(manifest string) string {
	var candidates []string
	for _, line := range strings.Split(manifest, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#EXTINF") {
			continue
		}
		match := extinfNamePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		if tvgName := strings.Trim(match[1], `'"`); tvgName != "" {
			return tvgName
		}
		display := strings.TrimSpace(match[2])
		if cleaned := strings.Map(dropNamePunct, display); cleaned != "" {
			candidates = append(candidates, display)
		}
	}

	best := ""
	for _, c := range candidates {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

func dropNamePunct(r rune) rune {
	switch r {
	case ',', '.', '，', '。':
		return -1
	}
	return r
}

func (p *Prober) nameFromDisposition(ctx context.Context, streamURL string) string {
	resp, err := p.segmentClient.Head(ctx, streamURL)
	if err != nil {
		return ""
	}
	resp.Body.Close()

	cd := resp.Header.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	match := dispositionValue.FindStringSubmatch(cd)
	if match == nil {
		return ""
	}
	filename := strings.Trim(match[1], `";`)
	if ext := strings.LastIndex(filename, "."); ext > 0 {
		filename = filename[:ext]
	}
	return filename
}

func resolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}
