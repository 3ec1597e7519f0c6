package epub

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
)

// ConvertOptions are the rendering options of one chapter.
type ConvertOptions struct {
	// Respec requests rendering of a ReSpec source.
	Respec bool

	// Config overrides the ReSpec configuration of the source.
	Config RespecConfig
}

// Converter turns a single document into a finished EPUB container. The
// container's Name is the suggested output file name, "<name>.epub".
type Converter interface {
	Create(ctx context.Context, url string, opts ConvertOptions) (*Container, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, url string, opts ConvertOptions) (*Container, error)

// Create calls f.
func (f ConverterFunc) Create(ctx context.Context, url string, opts ConvertOptions) (*Container, error) {
	return f(ctx, url, opts)
}

// maxArchiveSize bounds the size of a fetched chapter archive or descriptor.
const maxArchiveSize int64 = 512 * 1024 * 1024

// ArchiveConverter obtains chapters as pre-rendered EPUB archives.
//
// With an empty Endpoint, the chapter URL itself must locate an EPUB
// archive, by http(s) URL or local path. Otherwise the archive is requested
// from the conversion service at Endpoint, which takes the document URL and
// the rendering options as query parameters (url, respec, publishDate,
// specStatus, addSectionLinks, maxTocLevel).
type ArchiveConverter struct {
	// Endpoint is the base URL of a conversion service.
	Endpoint string

	// Client is used for http(s) requests; nil means http.DefaultClient.
	Client *http.Client
}

// Create fetches and opens the chapter archive. Failures to retrieve it are
// ErrFetch, an unreadable archive is ErrParse.
func (a *ArchiveConverter) Create(ctx context.Context, docURL string, opts ConvertOptions) (*Container, error) {
	location := docURL
	if a.Endpoint != "" {
		var err error
		if location, err = serviceURL(a.Endpoint, docURL, opts); err != nil {
			return nil, err
		}
	}

	data, name, err := fetch(ctx, a.Client, location)
	if err != nil {
		return nil, err
	}
	if a.Endpoint != "" && !strings.HasSuffix(name, ".epub") {
		name = path.Base(strings.TrimSuffix(docURL, "/")) + ".epub"
	}
	return ReadContainer(data, name)
}

// serviceURL encodes a conversion request for the service at endpoint.
func serviceURL(endpoint, docURL string, opts ConvertOptions) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("epub: conversion endpoint %q: %w: %w", endpoint, ErrFetch, err)
	}
	q := u.Query()
	q.Set("url", docURL)
	q.Set("respec", strconv.FormatBool(opts.Respec))
	if c := opts.Config; !c.IsZero() {
		if c.PublishDate != "" {
			q.Set("publishDate", c.PublishDate)
		}
		if c.SpecStatus != "" {
			q.Set("specStatus", c.SpecStatus)
		}
		if c.AddSectionLinks != nil {
			q.Set("addSectionLinks", strconv.FormatBool(*c.AddSectionLinks))
		}
		if c.MaxTocLevel > 0 {
			q.Set("maxTocLevel", strconv.Itoa(c.MaxTocLevel))
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetch retrieves location, an http(s) URL or a local path. The returned
// name is the file name announced by Content-Disposition, else the last
// path segment of location.
func fetch(ctx context.Context, client *http.Client, location string) ([]byte, string, error) {
	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fetchFile(location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, "", fmt.Errorf("epub: request %s: %w: %w", location, ErrFetch, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("epub: get %s: %w: %w", location, ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("epub: get %s: %s: %w", location, resp.Status, ErrFetch)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("epub: read %s: %w: %w", location, ErrFetch, err)
	}
	if int64(len(data)) > maxArchiveSize {
		return nil, "", fmt.Errorf("epub: %s exceeds %d bytes: %w", location, maxArchiveSize, ErrFetch)
	}

	name := dispositionName(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = path.Base(u.Path)
	}
	return data, name, nil
}

func fetchFile(location string) ([]byte, string, error) {
	p := strings.TrimPrefix(location, "file://")
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", fmt.Errorf("epub: read %s: %w: %w", location, ErrFetch, err)
	}
	return data, path.Base(strings.ReplaceAll(p, `\`, "/")), nil
}

// dispositionName extracts the file name of a Content-Disposition header.
func dispositionName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if name == "" {
		return ""
	}
	return path.Base(name)
}
