package server

import (
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
)

// maxUploadMemory bounds how much of a multipart request is buffered
// in memory before spilling to disk.
const maxUploadMemory = 64 << 20

// handleUpload accepts multipart firmware uploads and registers each
// file as an artifact. The returned ids can be used as base or target
// references in later merge, inspect and verify requests.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, fmt.Sprintf("parse multipart: %v", err), http.StatusBadRequest)
		return
	}
	form := r.MultipartForm
	if form == nil || len(form.File) == 0 {
		http.Error(w, "no files provided", http.StatusBadRequest)
		return
	}

	var refs []ArtifactRef
	for _, headers := range form.File {
		for _, fh := range headers {
			ref, err := s.storeUpload(fh)
			if err != nil {
				http.Error(w, fmt.Sprintf("store %s: %v", fh.Filename, err), http.StatusBadRequest)
				return
			}
			refs = append(refs, ref)
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Files []ArtifactRef `json:"files"`
	}{Files: refs})
}

// storeUpload copies one uploaded file into the workspace and registers
// it. Firmware beyond 32-bit addressing can never be packaged, so
// larger uploads are refused at the door.
func (s *Server) storeUpload(fh *multipart.FileHeader) (ArtifactRef, error) {
	if fh.Size > math.MaxUint32 {
		return ArtifactRef{}, fmt.Errorf("%d bytes exceeds 32-bit addressing", fh.Size)
	}
	src, err := fh.Open()
	if err != nil {
		return ArtifactRef{}, err
	}
	defer src.Close()

	dst, err := os.CreateTemp(s.uploadsDir, "upload-*")
	if err != nil {
		return ArtifactRef{}, err
	}
	written, err := io.Copy(dst, io.LimitReader(src, math.MaxUint32+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > math.MaxUint32 {
		err = fmt.Errorf("upload exceeds 32-bit addressing")
	}
	if err != nil {
		os.Remove(dst.Name())
		return ArtifactRef{}, err
	}

	art, err := s.addArtifact(dst.Name(), fh.Filename, guessContentType(fh.Filename), "upload")
	if err != nil {
		return ArtifactRef{}, err
	}
	return toRef(art), nil
}
