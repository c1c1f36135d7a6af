// Package monitoring serves the state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/tracing"
)

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation.
type Monitor struct {
	log        logrus.FieldLogger
	portNumber int

	config       *cache.Config
	evictionInfo *tracing.EvictionCountTracer

	statsLock sync.Mutex
	stats     cache.Statistics

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor(log logrus.FieldLogger) *Monitor {
	return &Monitor{log: log}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.log.WithField("port", portNumber).
			Warn("port numbers below 1000 are not allowed, using a random port")

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterModel registers the cache being simulated. Only its configuration
// is served, since the model itself is owned by the simulation goroutine.
func (m *Monitor) RegisterModel(model *cache.Model) {
	config := model.Config()
	m.config = &config
}

// RegisterEvictionCounter makes per-set eviction counts available.
func (m *Monitor) RegisterEvictionCounter(t *tracing.EvictionCountTracer) {
	m.evictionInfo = t
}

// UpdateStats publishes a snapshot of the counters.
func (m *Monitor) UpdateStats(stats cache.Statistics) {
	m.statsLock.Lock()
	defer m.statsLock.Unlock()

	m.stats = stats
}

// Stats returns the last published snapshot.
func (m *Monitor) Stats() cache.Statistics {
	m.statsLock.Lock()
	defer m.statsLock.Unlock()

	return m.stats
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(xid.New().String(), name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the list of bars.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/model", m.showModel)
	r.HandleFunc("/api/stats", m.showStats)
	r.HandleFunc("/api/evictions", m.listEvictions)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitor.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			m.log.WithError(err).Error("monitoring server stopped")
		}
	}()

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	return url, nil
}

// OpenBrowser opens the monitor in the default browser.
func (m *Monitor) OpenBrowser(url string) {
	err := browser.OpenURL(url + "/api/stats")
	if err != nil {
		m.log.WithError(err).Warn("cannot open browser")
	}
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) showModel(w http.ResponseWriter, _ *http.Request) {
	if m.config == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.config)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	m.dieOnErr(err)
}

type statsRsp struct {
	cache.Statistics
	MissRatio float64 `json:"MissRatio"`
}

func (m *Monitor) showStats(w http.ResponseWriter, _ *http.Request) {
	stats := m.Stats()

	m.writeJSON(w, statsRsp{
		Statistics: stats,
		MissRatio:  stats.MissRatio(),
	})
}

func (m *Monitor) listEvictions(w http.ResponseWriter, r *http.Request) {
	if m.evictionInfo == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	limit := 10

	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Error: invalid limit %q", limitStr)

			return
		}

		limit = n
	}

	m.writeJSON(w, m.evictionInfo.Top(limit))
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	m.dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	m.dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	m.dieOnErr(err)

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	m.dieOnErr(err)

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	m.dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	m.dieOnErr(err)
}

func (m *Monitor) dieOnErr(err error) {
	if err != nil {
		m.log.WithError(err).Panic("monitor failed")
	}
}
