package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/checkarr/internal/config"
	"github.com/jmylchreest/checkarr/internal/models"
)

func testProbeConfig() config.ProbeConfig {
	return config.ProbeConfig{
		RequestTimeout:     5 * time.Second,
		HardTimeout:        30 * time.Second,
		NameTimeout:        3 * time.Second,
		SegmentTestCount:   3,
		BenchmarkChunks:    512,
		BenchmarkChunkSize: 1024,
	}
}

func newTestProber(t *testing.T) *Prober {
	t.Helper()
	models.ClearInterned()
	t.Cleanup(models.ClearInterned)
	return New(testProbeConfig(), nil)
}

const mediaManifest = "#EXTM3U\n" +
	"#EXT-X-VERSION:3\n" +
	"#EXT-X-MEDIA-SEQUENCE:0\n" +
	"#EXTINF:10,\nseg0.ts\n" +
	"#EXTINF:10,\nseg1.ts\n"

func TestCheck_MP4HappyPath(t *testing.T) {
	p := newTestProber(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "20480")
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		body := make([]byte, 20480)
		copy(body, []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'})
		w.Write(body)
	}))
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/a.mp4")
	ch := models.NewChannel("1", "电影台")

	assert.True(t, p.Check(context.Background(), ch, ep, true))
	// Stages 1-5 are skipped for MP4 URLs.
	assert.Zero(t, ep.Speed())
}

func TestCheck_MP4RejectsBadMagic(t *testing.T) {
	p := newTestProber(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write([]byte("not an mp4 file at all"))
	}))
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/a.mp4")
	assert.False(t, p.Check(context.Background(), nil, ep, true))
}

func TestCheck_MP4RejectsWrongContentType(t *testing.T) {
	p := newTestProber(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/a.mp4")
	assert.False(t, p.Check(context.Background(), nil, ep, true))
}

func TestCheck_MP4RejectsTinyContentLength(t *testing.T) {
	p := newTestProber(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "512")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/a.mp4")
	assert.False(t, p.Check(context.Background(), nil, ep, true))
}

func TestCheck_M3U8HappyPath(t *testing.T) {
	p := newTestProber(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/x.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mediaManifest))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".ts") {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write(make([]byte, 1024))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/x.m3u8")
	ch := models.NewChannel("5", "")

	assert.True(t, p.Check(context.Background(), ch, ep, true))
	assert.Greater(t, ep.Speed(), 0.0)
}

func TestCheck_VariantFollowRewritesURL(t *testing.T) {
	p := newTestProber(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=1280x720\n/low/index.m3u8\n"))
	})
	mux.HandleFunc("/low/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mediaManifest))
	})
	mux.HandleFunc("/low/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write(make([]byte, 1024))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/master.m3u8")

	assert.True(t, p.Check(context.Background(), nil, ep, true))
	assert.Equal(t, server.URL+"/low/index.m3u8", ep.URL())
	assert.Equal(t, "1280x720", ep.Resolution())
}

func TestCheck_VariantFollowTriesNextOnFailure(t *testing.T) {
	p := newTestProber(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n" +
			"#EXT-X-STREAM-INF:BANDWIDTH=2560000\n/dead/index.m3u8\n" +
			"#EXT-X-STREAM-INF:BANDWIDTH=1280000\n/live/index.m3u8\n"))
	})
	mux.HandleFunc("/dead/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/live/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mediaManifest))
	})
	mux.HandleFunc("/live/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write(make([]byte, 1024))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/master.m3u8")

	assert.True(t, p.Check(context.Background(), nil, ep, true))
	assert.Equal(t, server.URL+"/live/index.m3u8", ep.URL())
}

func TestCheck_ShallowStopsAfterFetch(t *testing.T) {
	p := newTestProber(t)

	var segmentHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/x.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mediaManifest))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		segmentHits++
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/x.m3u8")

	assert.True(t, p.Check(context.Background(), nil, ep, false))
	assert.Zero(t, segmentHits)
	assert.Zero(t, ep.Speed())
}

func TestCheck_StructureInvalid(t *testing.T) {
	p := newTestProber(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No #EXT-X-MEDIA-SEQUENCE tag.
		w.Write([]byte("#EXTM3U\n#EXT-X-VERSION:3\n#EXTINF:10,\nseg0.ts\n"))
	}))
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/x.m3u8")
	assert.False(t, p.Check(context.Background(), nil, ep, true))
}

func TestCheck_AllSegmentsUnreachable(t *testing.T) {
	p := newTestProber(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/x.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mediaManifest))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/x.m3u8")
	assert.False(t, p.Check(context.Background(), nil, ep, true))
}

func TestCheck_NonStreamURLRejected(t *testing.T) {
	p := newTestProber(t)
	ep := models.InternEndpoint("http://example.com/page.html")
	assert.False(t, p.Check(context.Background(), nil, ep, true))
}

func TestCheck_NameExtractionFromTvgName(t *testing.T) {
	p := newTestProber(t)

	manifest := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:10 tvg-name=\"CCTV1综合\",备用名\nseg0.ts\n"

	mux := http.NewServeMux()
	mux.HandleFunc("/x.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(manifest))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write(make([]byte, 1024))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/x.m3u8")
	ch := models.NewChannel("7", "")

	require.True(t, p.Check(context.Background(), ch, ep, true))
	assert.Equal(t, "CCTV1综合", ch.Name())
}

func TestCheck_NameFallbackSynthesized(t *testing.T) {
	p := newTestProber(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/x.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mediaManifest))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write(make([]byte, 1024))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/x.m3u8")
	ch := models.NewChannel("42", "")

	require.True(t, p.Check(context.Background(), ch, ep, true))
	// Manifest has only empty display names; the channel falls back to its id.
	assert.Equal(t, "频道-42", ch.Name())
}

func TestNameFromExtinf(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     string
	}{
		{
			name:     "tvg-name wins",
			manifest: "#EXTINF:10 tvg-name=\"湖南卫视\",长长长的显示名称",
			want:     "湖南卫视",
		},
		{
			name:     "longest display name",
			manifest: "#EXTINF:10,短名\n#EXTINF:10,长一点的名字",
			want:     "长一点的名字",
		},
		{
			name:     "punctuation-only names skipped",
			manifest: "#EXTINF:10,，。\n#EXTINF:10,真名",
			want:     "真名",
		},
		{
			name:     "no candidates",
			manifest: "#EXTINF:10,\nseg.ts",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nameFromExtinf(tt.manifest))
		})
	}
}

func TestNameFromDisposition(t *testing.T) {
	p := newTestProber(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="CCTV5.m3u8";`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.Equal(t, "CCTV5", p.nameFromDisposition(context.Background(), server.URL))
}

func TestValidateStructure(t *testing.T) {
	valid, _ := validateStructure(mediaManifest)
	assert.True(t, valid)

	valid, reason := validateStructure("not a manifest")
	assert.False(t, valid)
	assert.Contains(t, reason, "#EXTM3U")

	valid, reason = validateStructure("#EXTM3U\n#EXTINF:10,\nseg.ts")
	assert.False(t, valid)
	assert.Contains(t, reason, "#EXT-X-VERSION")
}

func TestSegmentURIs_RawScanFallback(t *testing.T) {
	// This manifest lacks #EXT-X-TARGETDURATION, which the strict playlist
	// parser rejects; the raw scan still finds the segment lines.
	uris := segmentURIs(mediaManifest)
	assert.Equal(t, []string{"seg0.ts", "seg1.ts"}, uris)
}

func TestSegmentURIs_ParsedPlaylist(t *testing.T) {
	manifest := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-TARGETDURATION:10\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:10,\nseg0.ts\n" +
		"#EXTINF:10,\nseg1.ts\n" +
		"#EXTINF:10,\nseg2.ts\n" +
		"#EXTINF:10,\nseg3.ts\n"
	uris := segmentURIs(manifest)
	assert.Equal(t, []string{"seg0.ts", "seg1.ts", "seg2.ts", "seg3.ts"}, uris)
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "http://other/abs.ts", resolveURL("http://h/x.m3u8", "http://other/abs.ts"))
	assert.Equal(t, "http://h/seg.ts", resolveURL("http://h/x.m3u8", "seg.ts"))
	assert.Equal(t, "http://h/low/index.m3u8", resolveURL("http://h/master.m3u8", "/low/index.m3u8"))
	assert.Equal(t, "http://h/sub/seg.ts", resolveURL("http://h/sub/x.m3u8", "seg.ts"))
}

func TestCheck_FewerSegmentsThanTestCount(t *testing.T) {
	p := newTestProber(t)

	manifest := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:10,\nonly.ts\n"
	mux := http.NewServeMux()
	mux.HandleFunc("/x.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(manifest))
	})
	mux.HandleFunc("/only.ts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write(make([]byte, 1024))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ep := models.InternEndpoint(server.URL + "/x.m3u8")
	assert.True(t, p.Check(context.Background(), nil, ep, true))
}
