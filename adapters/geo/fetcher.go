package geo

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"degpredict/internal/errors"
)

var (
	seriesPattern   = regexp.MustCompile(`^GSE\d+$`)
	platformPattern = regexp.MustCompile(`^GPL\d+$`)
)

// Fetcher downloads GEO series matrices and platform annotations into a
// local cache directory. Files already present in the cache are not fetched
// again.
type Fetcher struct {
	baseURL    string
	cacheDir   string
	httpClient *http.Client
}

// NewFetcher creates a fetcher rooted at the GEO series FTP mirror, e.g.
// https://ftp.ncbi.nlm.nih.gov/geo/series.
func NewFetcher(baseURL, cacheDir string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		baseURL:  strings.TrimRight(baseURL, "/"),
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// stubDir maps an accession to its FTP bucket: GSE43217 -> GSE43nnn,
// GSE123 -> GSEnnn.
func stubDir(prefix, accession string) string {
	digits := strings.TrimPrefix(accession, prefix)
	if len(digits) <= 3 {
		return prefix + "nnn"
	}
	return prefix + digits[:len(digits)-3] + "nnn"
}

// SeriesMatrixURL returns the download location of a series matrix.
func SeriesMatrixURL(baseURL, accession string) (string, error) {
	accession = strings.ToUpper(strings.TrimSpace(accession))
	if !seriesPattern.MatchString(accession) {
		return "", fmt.Errorf("invalid GEO series accession %q", accession)
	}
	return fmt.Sprintf("%s/%s/%s/matrix/%s_series_matrix.txt.gz",
		strings.TrimRight(baseURL, "/"), stubDir("GSE", accession), accession, accession), nil
}

// PlatformAnnotationURL returns the download location of a platform
// annotation file. The platforms tree is a sibling of the series tree.
func PlatformAnnotationURL(baseURL, platform string) (string, error) {
	platform = strings.ToUpper(strings.TrimSpace(platform))
	if !platformPattern.MatchString(platform) {
		return "", fmt.Errorf("invalid GEO platform accession %q", platform)
	}
	root := strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/series")
	return fmt.Sprintf("%s/platforms/%s/%s/annot/%s.annot.gz", root, stubDir("GPL", platform), platform, platform), nil
}

// FetchSeriesMatrix downloads the series matrix for accession and returns the
// local path.
func (f *Fetcher) FetchSeriesMatrix(ctx context.Context, accession string) (string, error) {
	url, err := SeriesMatrixURL(f.baseURL, accession)
	if err != nil {
		return "", err
	}
	return f.fetch(ctx, url)
}

// FetchPlatformAnnotation downloads the annotation for a GPL accession and
// returns the local path.
func (f *Fetcher) FetchPlatformAnnotation(ctx context.Context, platform string) (string, error) {
	url, err := PlatformAnnotationURL(f.baseURL, platform)
	if err != nil {
		return "", err
	}
	return f.fetch(ctx, url)
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	dest := filepath.Join(f.cacheDir, filepath.Base(url))
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		log.Printf("[GEO] Using cached %s", dest)
		return dest, nil
	}
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	startTime := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", errors.ExternalServiceError("GEO", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.ExternalServiceError("GEO", fmt.Errorf("status %d for %s", resp.StatusCode, url))
	}

	// write next to the destination and rename so a partial download never
	// looks cached
	tmp, err := os.CreateTemp(f.cacheDir, filepath.Base(dest)+".part-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		if copyErr != nil {
			return "", fmt.Errorf("download interrupted: %w", copyErr)
		}
		return "", closeErr
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move download into cache: %w", err)
	}

	log.Printf("[GEO] Downloaded %s (%d bytes) in %s", filepath.Base(dest), n, time.Since(startTime).Round(time.Millisecond))
	return dest, nil
}
