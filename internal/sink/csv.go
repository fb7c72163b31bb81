package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"sync"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

// CSVSink 按给定字段顺序输出 CSV，首行写表头
type CSVSink struct {
	mu          sync.Mutex
	w           *csv.Writer
	fields      []string
	wroteHeader bool
}

// NewCSVSink fields 一般为 oria.FieldNames()
func NewCSVSink(w io.Writer, fields []string) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w), fields: append([]string(nil), fields...)}
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Emit(_ context.Context, r coremodel.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.wroteHeader {
		if err := s.w.Write(s.fields); err != nil {
			return err
		}
		s.wroteHeader = true
	}
	row := make([]string, len(s.fields))
	for i, f := range s.fields {
		row[i] = r.Field(f)
	}
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// JSONSink 每条读数一行 JSON（rtl_433 -F json 风格）
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink { return &JSONSink{enc: json.NewEncoder(w)} }

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Emit(_ context.Context, r coremodel.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(r)
}
