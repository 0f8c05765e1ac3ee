package activity

import (
	"bufio"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
)

var gpxTmpl = template.Must(template.New("gpx").Funcs(template.FuncMap{
	"rfc3339": func(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) },
}).Parse(gpxTemplates))

const gpxTemplates = `{{define "header"}}<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="ergo-tacho" xmlns="http://www.topografix.com/GPX/1/1" xmlns:ergo="https://github.com/sweeney/ergo-tacho/gpx/1">
  <metadata>
    <name>{{.SessionID}}</name>
    <time>{{rfc3339 .Start}}</time>
  </metadata>
  <trk>
    <name>{{.SessionID}}</name>
    <trkseg>
{{end}}{{define "trkpt"}}      <trkpt lat="{{printf "%.7f" .Lat}}" lon="{{printf "%.7f" .Lon}}">
        <ele>0</ele>
        <time>{{rfc3339 .Timestamp}}</time>
        <extensions>
          <ergo:distance>{{printf "%.1f" .Distance}}</ergo:distance>
          <ergo:speed>{{printf "%.2f" .Speed}}</ergo:speed>
          <ergo:lap>{{.Lap}}</ergo:lap>
        </extensions>
      </trkpt>
{{end}}{{define "trailer"}}    </trkseg>
  </trk>
</gpx>
{{end}}`

// GPXExport writes a GPX track with one point per waypoint crossing.
// The header is written on creation and the trailer on Close.
type GPXExport struct {
	w      *bufio.Writer
	wc     io.WriteCloser
	closed bool
}

// NewGPXExport writes the header to wc.
func NewGPXExport(wc io.WriteCloser, sessionID string, start time.Time) (*GPXExport, error) {
	e := &GPXExport{w: bufio.NewWriter(wc), wc: wc}
	header := struct {
		SessionID string
		Start     time.Time
	}{sessionID, start}
	if err := gpxTmpl.ExecuteTemplate(e.w, "header", header); err != nil {
		return nil, err
	}
	if err := e.w.Flush(); err != nil {
		return nil, err
	}
	return e, nil
}

// Sample is not recorded in the export.
func (e *GPXExport) Sample(time.Time, uint64) error {
	return nil
}

// Crossing appends a track point.
func (e *GPXExport) Crossing(ev logic.LapEvent) error {
	if err := gpxTmpl.ExecuteTemplate(e.w, "trkpt", ev); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

// Close writes the trailer and closes the file. Safe to call twice.
func (e *GPXExport) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	terr := gpxTmpl.ExecuteTemplate(e.w, "trailer", nil)
	ferr := e.w.Flush()
	cerr := e.wc.Close()
	switch {
	case terr != nil:
		return fmt.Errorf("write export trailer: %w", terr)
	case ferr != nil:
		return fmt.Errorf("flush export: %w", ferr)
	}
	return cerr
}
