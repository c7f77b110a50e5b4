package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"example.com/aioforge/internal/aio"
	"example.com/aioforge/internal/common"
	"example.com/aioforge/internal/job"
	"example.com/aioforge/internal/manifest"
	"example.com/aioforge/internal/report"
	"example.com/aioforge/internal/rules"
)

// Server coordinates HTTP handlers and manages temporary artifacts
// produced by merge and verification requests.
type Server struct {
	artifacts   *ArtifactStore
	workDir     string
	uploadsDir  string
	profiles    map[string]profileEntry
	profileIds  []string
	verifyCache *lru.Cache[string, verifyResponse]
	sem         chan struct{}
}

// Artifact represents a file generated or stored by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	Kind        string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// ArtifactStore keeps track of generated artifacts for later download.
type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

type verifyResponse struct {
	Acceptance  rules.AcceptanceReport `json:"acceptance"`
	Diagnostics int                    `json:"diagnostics"`
	Artifacts   []ArtifactRef          `json:"artifacts"`
	Cached      bool                   `json:"cached,omitempty"`
}

// NewServer constructs a Server rooted at a temporary workspace directory.
func NewServer(opts Options) (*Server, error) {
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "aiod-")
	if err != nil {
		return nil, err
	}
	uploadsDir := filepath.Join(workDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	profiles, ids, err := buildProfileMap(opts)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	cacheSize := opts.VerifyCacheSize
	if cacheSize <= 0 {
		cacheSize = 128
	}
	verifyCache, err := lru.New[string, verifyResponse](cacheSize)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	s := &Server{
		artifacts:   &ArtifactStore{entries: make(map[string]Artifact)},
		workDir:     workDir,
		uploadsDir:  uploadsDir,
		profiles:    profiles,
		profileIds:  ids,
		verifyCache: verifyCache,
		sem:         make(chan struct{}, concurrency),
	}
	return s, nil
}

// Close removes any temporary state associated with the server.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

func (s *Server) acquire() func() {
	s.sem <- struct{}{}
	return func() { <-s.sem }
}

func (s *Server) tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (s *Server) addArtifact(path, displayName, contentType, kind string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New("empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, err
	}
	id := randomID()
	art := Artifact{
		ID:          id,
		Path:        path,
		Name:        displayName,
		ContentType: contentType,
		Size:        info.Size(),
		Kind:        kind,
	}
	if art.Name == "" {
		art.Name = filepath.Base(path)
	}
	if art.ContentType == "" {
		art.ContentType = guessContentType(art.Name)
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[id] = art
	s.artifacts.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	art, ok := s.artifacts.entries[id]
	s.artifacts.mu.RUnlock()
	return art, ok
}

// resolvePath turns an artifact id or a filesystem path into a path
// the server can read.
func (s *Server) resolvePath(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty input path")
	}
	if art, ok := s.getArtifact(token); ok {
		return art.Path, nil
	}
	abs := token
	if !filepath.IsAbs(token) {
		abs = filepath.Clean(token)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (s *Server) readInput(token string) (string, []byte, error) {
	path, err := s.resolvePath(token)
	if err != nil {
		return "", nil, err
	}
	data, err := common.ReadImageFile(path)
	if err != nil {
		return "", nil, err
	}
	return path, data, nil
}

func (s *Server) profileFor(id string) (profileEntry, bool) {
	if strings.TrimSpace(id) == "" {
		id = DefaultProfileID
	}
	entry, ok := s.profiles[id]
	return entry, ok
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer s.acquire()()
	var req struct {
		Base     string `json:"base"`
		BaseName string `json:"baseName"`
		Targets  []struct {
			Input  string `json:"input"`
			Name   string `json:"name,omitempty"`
			Offset string `json:"offset,omitempty"`
		} `json:"targets"`
		Profile string `json:"profile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if req.Base == "" {
		http.Error(w, "base required", http.StatusBadRequest)
		return
	}
	entry, ok := s.profileFor(req.Profile)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown profile %q", req.Profile), http.StatusBadRequest)
		return
	}
	basePath, base, err := s.readInput(req.Base)
	if err != nil {
		http.Error(w, fmt.Sprintf("base resolve: %v", err), http.StatusBadRequest)
		return
	}
	baseName := req.BaseName
	if baseName == "" {
		baseName = filepath.Base(basePath)
	}
	inputPaths := []string{basePath}
	targets := make([]aio.Target, 0, len(req.Targets))
	for i, t := range req.Targets {
		path, data, err := s.readInput(t.Input)
		if err != nil {
			http.Error(w, fmt.Sprintf("target %d resolve: %v", i, err), http.StatusBadRequest)
			return
		}
		inputPaths = append(inputPaths, path)
		off, err := job.ParseOffset(t.Offset)
		if err != nil {
			http.Error(w, fmt.Sprintf("target %d: %v", i, err), http.StatusBadRequest)
			return
		}
		name := t.Name
		if name == "" {
			name = filepath.Base(path)
		}
		targets = append(targets, aio.Target{Name: name, Data: data, Offset: off})
	}

	res, err := aio.Merge(base, targets, aio.MergeOptions{Profile: entry.profile, BaseName: baseName})
	if err != nil {
		http.Error(w, fmt.Sprintf("merge: %v", err), http.StatusBadRequest)
		return
	}

	imagePath, err := s.tempPath("merged-*.aio")
	if err != nil {
		http.Error(w, fmt.Sprintf("image temp: %v", err), http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(imagePath, res.Image, 0644); err != nil {
		http.Error(w, fmt.Sprintf("write image: %v", err), http.StatusInternalServerError)
		return
	}
	layout := report.LayoutFromMerge(res, "merged.aio")
	layoutPath, err := s.tempPath("layout-*.json")
	if err != nil {
		http.Error(w, fmt.Sprintf("layout temp: %v", err), http.StatusInternalServerError)
		return
	}
	if err := report.SaveLayoutJSON(layout, layoutPath); err != nil {
		http.Error(w, fmt.Sprintf("write layout: %v", err), http.StatusInternalServerError)
		return
	}
	qrPNG, err := report.ImageHashToQR(layout.Sha256, 256)
	if err != nil {
		http.Error(w, fmt.Sprintf("digest qr: %v", err), http.StatusInternalServerError)
		return
	}
	qrPath, err := s.tempPath("digest-*.png")
	if err != nil {
		http.Error(w, fmt.Sprintf("qr temp: %v", err), http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(qrPath, qrPNG, 0644); err != nil {
		http.Error(w, fmt.Sprintf("write qr: %v", err), http.StatusInternalServerError)
		return
	}

	imageArt, err := s.addArtifact(imagePath, "merged.aio", "application/octet-stream", "image")
	if err != nil {
		http.Error(w, fmt.Sprintf("register image: %v", err), http.StatusInternalServerError)
		return
	}
	layoutArt, err := s.addArtifact(layoutPath, "layout.json", "application/json", "layout")
	if err != nil {
		http.Error(w, fmt.Sprintf("register layout: %v", err), http.StatusInternalServerError)
		return
	}
	qrArt, err := s.addArtifact(qrPath, "digest.png", "image/png", "qr")
	if err != nil {
		http.Error(w, fmt.Sprintf("register qr: %v", err), http.StatusInternalServerError)
		return
	}
	mf, err := manifest.Build(append(inputPaths, imagePath))
	if err != nil {
		http.Error(w, fmt.Sprintf("build manifest: %v", err), http.StatusInternalServerError)
		return
	}
	manifestPath, err := s.tempPath("manifest-*.json")
	if err != nil {
		http.Error(w, fmt.Sprintf("manifest temp: %v", err), http.StatusInternalServerError)
		return
	}
	if err := manifest.Save(mf, manifestPath); err != nil {
		http.Error(w, fmt.Sprintf("write manifest: %v", err), http.StatusInternalServerError)
		return
	}
	manifestArt, err := s.addArtifact(manifestPath, "manifest.json", "application/json", "manifest")
	if err != nil {
		http.Error(w, fmt.Sprintf("register manifest: %v", err), http.StatusInternalServerError)
		return
	}

	resp := struct {
		Layout    report.LayoutReport `json:"layout"`
		Profile   string              `json:"profile"`
		Artifacts []ArtifactRef       `json:"artifacts"`
	}{
		Layout:  layout,
		Profile: entry.id,
		Artifacts: []ArtifactRef{
			toRef(imageArt),
			toRef(layoutArt),
			toRef(qrArt),
			toRef(manifestArt),
		},
	}
	common.Logf("merged %d payloads as %s (header 0x%X, total 0x%X)",
		len(res.Plan.Entries), imageArt.ID, res.HeaderSize, res.TotalSize)
	writeJSON(w, http.StatusOK, resp)
}

type summaryInfo struct {
	Version    uint16 `json:"version"`
	HeaderSize uint16 `json:"headerSize"`
	DeviceType uint8  `json:"deviceType"`
	FwVersion  uint32 `json:"fwVersion"`
	UpdateCtrl uint8  `json:"updateCtrl"`
	EntryCount uint8  `json:"entryCount"`
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		http.Error(w, "input required", http.StatusBadRequest)
		return
	}
	path, data, err := s.readInput(req.Input)
	if err != nil {
		http.Error(w, fmt.Sprintf("input resolve: %v", err), http.StatusBadRequest)
		return
	}
	insp, err := aio.Inspect(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("inspect: %v", err), http.StatusBadRequest)
		return
	}
	resp := struct {
		Summary summaryInfo         `json:"summary"`
		Layout  report.LayoutReport `json:"layout"`
	}{
		Summary: summaryInfo{
			Version:    insp.Summary.Version,
			HeaderSize: insp.Summary.HeaderSize,
			DeviceType: insp.Summary.DeviceType,
			FwVersion:  insp.Summary.FwVersion,
			UpdateCtrl: insp.Summary.UpdateCtrl,
			EntryCount: insp.Summary.EntryCount,
		},
		Layout: report.LayoutFromInspection(insp, data, filepath.Base(path)),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer s.acquire()()
	stream := r.URL.Query().Get("stream") == "true"
	var req struct {
		Input    string          `json:"input"`
		Profile  string          `json:"profile"`
		RulePack *rules.RulePack `json:"rulePack"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		http.Error(w, "input required", http.StatusBadRequest)
		return
	}
	entry, ok := s.profileFor(req.Profile)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown profile %q", req.Profile), http.StatusBadRequest)
		return
	}
	inputPath, err := s.resolvePath(req.Input)
	if err != nil {
		http.Error(w, fmt.Sprintf("input resolve: %v", err), http.StatusBadRequest)
		return
	}
	rp := s.selectRulePack(entry, req.RulePack)

	cacheKey := ""
	if req.RulePack == nil && !stream {
		if sha, _, err := common.Sha256OfFile(inputPath); err == nil {
			cacheKey = sha + "|" + entry.id + "|" + rp.RulePackId + "@" + rp.Version
		}
		if cacheKey != "" {
			if resp, ok := s.verifyCache.Get(cacheKey); ok {
				resp.Cached = true
				writeJSON(w, http.StatusOK, resp)
				return
			}
		}
	}

	engine := rules.NewEngine(rp)
	engine.RegisterBuiltins()
	ctx := &rules.Context{InputFile: inputPath, ProfileName: entry.id, Profile: entry.profile}

	if stream {
		w.Header().Set("Content-Type", "application/x-ndjson")
		writer := NewNDJSONWriter(w)
		diags, err := engine.Eval(ctx)
		if err != nil {
			_ = writer.WriteObject(map[string]any{"type": "error", "error": err.Error()})
			return
		}
		for _, d := range diags {
			if err := writer.WriteDiagnostic(d); err != nil {
				return
			}
		}
		rep := engine.MakeAcceptance()
		arts, err := s.saveVerifyArtifacts(engine, rep)
		if err != nil {
			_ = writer.WriteObject(map[string]any{"type": "error", "error": err.Error()})
			return
		}
		summary := struct {
			Type       string                 `json:"type"`
			Acceptance rules.AcceptanceReport `json:"acceptance"`
			Artifacts  []ArtifactRef          `json:"artifacts"`
			Total      int                    `json:"diagnostics"`
		}{
			Type:       "acceptance",
			Acceptance: rep,
			Artifacts:  arts,
			Total:      len(diags),
		}
		_ = writer.WriteObject(summary)
		return
	}

	diags, err := engine.Eval(ctx)
	if err != nil {
		http.Error(w, fmt.Sprintf("eval: %v", err), http.StatusInternalServerError)
		return
	}
	rep := engine.MakeAcceptance()
	arts, err := s.saveVerifyArtifacts(engine, rep)
	if err != nil {
		http.Error(w, fmt.Sprintf("save artifacts: %v", err), http.StatusInternalServerError)
		return
	}
	resp := verifyResponse{
		Acceptance:  rep,
		Diagnostics: len(diags),
		Artifacts:   arts,
	}
	if cacheKey != "" {
		s.verifyCache.Add(cacheKey, resp)
	}
	common.Logf("verified %s with %s@%s: pass=%v errors=%d warnings=%d",
		filepath.Base(inputPath), rp.RulePackId, rp.Version,
		rep.Summary.Pass, rep.Summary.Errors, rep.Summary.Warnings)
	writeJSON(w, http.StatusOK, resp)
}

// saveVerifyArtifacts persists the diagnostics stream, the acceptance
// JSON and its PDF rendering, registering all three for download.
func (s *Server) saveVerifyArtifacts(engine *rules.Engine, rep rules.AcceptanceReport) ([]ArtifactRef, error) {
	diagPath, err := s.tempPath("diagnostics-*.ndjson")
	if err != nil {
		return nil, err
	}
	if err := engine.WriteDiagnosticsNDJSON(diagPath); err != nil {
		return nil, err
	}
	accPath, err := s.tempPath("acceptance-*.json")
	if err != nil {
		return nil, err
	}
	if err := report.SaveAcceptanceJSON(rep, accPath); err != nil {
		return nil, err
	}
	pdfPath, err := s.tempPath("acceptance-*.pdf")
	if err != nil {
		return nil, err
	}
	if err := report.SaveAcceptancePDF(rep, pdfPath); err != nil {
		return nil, err
	}
	diagArt, err := s.addArtifact(diagPath, "diagnostics.ndjson", "application/x-ndjson", "diagnostics")
	if err != nil {
		return nil, err
	}
	accArt, err := s.addArtifact(accPath, "acceptance_report.json", "application/json", "acceptance")
	if err != nil {
		return nil, err
	}
	pdfArt, err := s.addArtifact(pdfPath, "acceptance_report.pdf", "application/pdf", "acceptance")
	if err != nil {
		return nil, err
	}
	return []ArtifactRef{toRef(diagArt), toRef(accArt), toRef(pdfArt)}, nil
}

func (s *Server) selectRulePack(entry profileEntry, override *rules.RulePack) rules.RulePack {
	if override != nil && len(override.Rules) > 0 {
		return *override
	}
	if entry.rulePack != nil {
		return *entry.rulePack
	}
	return rules.DefaultRulePack()
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer s.acquire()()
	var req struct {
		Inputs  []string `json:"inputs"`
		ShaAlgo string   `json:"shaAlgo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Inputs) == 0 {
		http.Error(w, "inputs required", http.StatusBadRequest)
		return
	}
	if req.ShaAlgo == "" {
		req.ShaAlgo = "sha256"
	}
	if !strings.EqualFold(req.ShaAlgo, "sha256") {
		http.Error(w, "only sha256 supported", http.StatusBadRequest)
		return
	}
	var paths []string
	for _, in := range req.Inputs {
		resolved, err := s.resolvePath(in)
		if err != nil {
			http.Error(w, fmt.Sprintf("resolve %s: %v", in, err), http.StatusBadRequest)
			return
		}
		paths = append(paths, resolved)
	}
	m, err := manifest.Build(paths)
	if err != nil {
		http.Error(w, fmt.Sprintf("build manifest: %v", err), http.StatusInternalServerError)
		return
	}
	outPath, err := s.tempPath("manifest-*.json")
	if err != nil {
		http.Error(w, fmt.Sprintf("manifest temp: %v", err), http.StatusInternalServerError)
		return
	}
	if err := manifest.Save(m, outPath); err != nil {
		http.Error(w, fmt.Sprintf("write manifest: %v", err), http.StatusInternalServerError)
		return
	}
	art, err := s.addArtifact(outPath, "manifest.json", "application/json", "manifest")
	if err != nil {
		http.Error(w, fmt.Sprintf("register manifest: %v", err), http.StatusInternalServerError)
		return
	}
	resp := struct {
		Manifest manifest.Manifest `json:"manifest"`
		Artifact ArtifactRef       `json:"artifact"`
	}{
		Manifest: m,
		Artifact: toRef(art),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type profileInfo struct {
		ID   string `json:"id"`
		Name string `json:"name,omitempty"`
	}
	infos := make([]profileInfo, 0, len(s.profileIds))
	for _, id := range s.profileIds {
		infos = append(infos, profileInfo{ID: id, Name: s.profiles[id].name})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleArtifactList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.listArtifacts())
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	art, ok := s.getArtifact(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(art.Path)
	if err != nil {
		http.Error(w, fmt.Sprintf("open artifact: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, fmt.Sprintf("stat artifact: %v", err), http.StatusInternalServerError)
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	disposition := fmt.Sprintf("attachment; filename=\"%s\"", art.Name)
	w.Header().Set("Content-Disposition", disposition)
	io.Copy(w, f)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := filepath.Join("api", "openapi.yaml")
	http.ServeFile(w, r, path)
}

func toRef(art Artifact) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		Name:        art.Name,
		ContentType: art.ContentType,
		Size:        art.Size,
		Kind:        art.Kind,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func guessContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".ndjson", ".jsonl":
		return "application/x-ndjson"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain"
	case ".aio", ".bin", ".fw", ".img":
		return "application/octet-stream"
	default:
		return "application/octet-stream"
	}
}

func randomID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		now := time.Now().UTC()
		return fmt.Sprintf("%d%06d", now.UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(b[:])
}

func (s *Server) listArtifacts() []ArtifactRef {
	s.artifacts.mu.RLock()
	refs := make([]ArtifactRef, 0, len(s.artifacts.entries))
	for _, art := range s.artifacts.entries {
		refs = append(refs, toRef(art))
	}
	s.artifacts.mu.RUnlock()
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}
