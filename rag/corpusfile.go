package rag

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrMalformedCorpus = errors.New("rag: malformed corpus file")

const (
	colTitle   = "title"
	colHeading = "heading"
	colContent = "content"
	colTokens  = "tokens"
)

// LoadCorpus reads precomputed embeddings from a .csv or .json file.
func LoadCorpus(path string) (Corpus, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCorpusCSV(f)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ReadCorpusJSON(data)
	}
	return nil, fmt.Errorf("%w: unsupported extension %q", ErrMalformedCorpus, filepath.Ext(path))
}

// LoadSections reads section texts from a .csv or .json file.
func LoadSections(path string) ([]Section, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadSectionsCSV(f)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ReadSectionsJSON(data)
	}
	return nil, fmt.Errorf("%w: unsupported extension %q", ErrMalformedCorpus, filepath.Ext(path))
}

// ReadCorpusCSV parses a CSV with the columns "title", "heading", "0", "1",
// ... up to the length of the embedding vectors.
func ReadCorpusCSV(r io.Reader) (Corpus, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return Corpus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorpus, err)
	}

	titleCol, headingCol := -1, -1
	dimCols := map[int]int{}
	maxDim := -1
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch name {
		case colTitle:
			titleCol = i
			continue
		case colHeading:
			headingCol = i
			continue
		}
		d, err := strconv.Atoi(name)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: unexpected column %q", ErrMalformedCorpus, name)
		}
		dimCols[d] = i
		maxDim = max(maxDim, d)
	}
	if titleCol < 0 || headingCol < 0 {
		return nil, fmt.Errorf("%w: missing title or heading column", ErrMalformedCorpus)
	}
	if maxDim < 0 {
		return nil, fmt.Errorf("%w: no embedding columns", ErrMalformedCorpus)
	}
	for d := 0; d <= maxDim; d++ {
		if _, ok := dimCols[d]; !ok {
			return nil, fmt.Errorf("%w: missing embedding column %d", ErrMalformedCorpus, d)
		}
	}

	corpus := Corpus{}
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedCorpus, row, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrMalformedCorpus, row, len(rec), len(header))
		}

		vec := make([]float64, maxDim+1)
		for d := range vec {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[dimCols[d]]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrMalformedCorpus, row, d, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d column %d: non-finite value %v", ErrMalformedCorpus, row, d, v)
			}
			vec[d] = v
		}
		corpus = append(corpus, DocumentVector{
			ID:        DocumentID{Title: rec[titleCol], Heading: rec[headingCol]},
			Embedding: vec,
		})
	}
	return corpus, nil
}

// ReadCorpusJSON parses an array of objects carrying "title", "heading" and
// one numeric-string key per embedding dimension.
func ReadCorpusJSON(data []byte) (Corpus, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedCorpus)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected a json array", ErrMalformedCorpus)
	}

	corpus := Corpus{}
	for i, item := range root.Array() {
		doc, err := parseJSONDocument(item)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedCorpus, i, err)
		}
		corpus = append(corpus, doc)
	}
	return corpus, nil
}

func parseJSONDocument(item gjson.Result) (DocumentVector, error) {
	if !item.IsObject() {
		return DocumentVector{}, errors.New("not an object")
	}

	var (
		doc     DocumentVector
		values  = map[int]float64{}
		maxDim  = -1
		itemErr error
	)
	item.ForEach(func(key, val gjson.Result) bool {
		switch k := key.String(); k {
		case colTitle:
			doc.ID.Title = val.String()
		case colHeading:
			doc.ID.Heading = val.String()
		default:
			d, err := strconv.Atoi(k)
			if err != nil || d < 0 {
				itemErr = fmt.Errorf("unexpected key %q", k)
				return false
			}
			if val.Type != gjson.Number {
				itemErr = fmt.Errorf("key %q is not a number", k)
				return false
			}
			values[d] = val.Float()
			maxDim = max(maxDim, d)
		}
		return true
	})
	if itemErr != nil {
		return DocumentVector{}, itemErr
	}

	doc.Embedding = make([]float64, maxDim+1)
	for d := range doc.Embedding {
		v, ok := values[d]
		if !ok {
			return DocumentVector{}, fmt.Errorf("missing dimension %d", d)
		}
		doc.Embedding[d] = v
	}
	return doc, nil
}

// WriteCorpusCSV writes corpus in the format read by ReadCorpusCSV.
func WriteCorpusCSV(w io.Writer, corpus Corpus) error {
	cw := csv.NewWriter(w)

	dim := corpus.Dimension()
	header := make([]string, 0, dim+2)
	header = append(header, colTitle, colHeading)
	for d := 0; d < dim; d++ {
		header = append(header, strconv.Itoa(d))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, doc := range corpus {
		if len(doc.Embedding) != dim {
			return fmt.Errorf("%w: %s has %d dimensions, expected %d", ErrDimensionMismatch, doc.ID, len(doc.Embedding), dim)
		}
		rec := make([]string, 0, dim+2)
		rec = append(rec, doc.ID.Title, doc.ID.Heading)
		for _, v := range doc.Embedding {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSectionsCSV parses a CSV with "title", "heading", "content" and an
// optional "tokens" column.
func ReadSectionsCSV(r io.Reader) ([]Section, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorpus, err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colTitle, colHeading, colContent} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing %s column", ErrMalformedCorpus, required)
		}
	}
	tokensCol, hasTokens := cols[colTokens]

	var sections []Section
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedCorpus, row, err)
		}
		s := Section{
			ID:      DocumentID{Title: rec[cols[colTitle]], Heading: rec[cols[colHeading]]},
			Content: rec[cols[colContent]],
		}
		if hasTokens && strings.TrimSpace(rec[tokensCol]) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(rec[tokensCol]))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d tokens: %v", ErrMalformedCorpus, row, err)
			}
			s.Tokens = n
		} else {
			s.Tokens = EstimateTokens(s.Content)
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// ReadSectionsJSON parses an array of {"title", "heading", "content",
// "tokens"} objects. "tokens" may be omitted.
func ReadSectionsJSON(data []byte) ([]Section, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedCorpus)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected a json array", ErrMalformedCorpus)
	}

	var sections []Section
	for i, item := range root.Array() {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: item %d is not an object", ErrMalformedCorpus, i)
		}
		s := Section{
			ID: DocumentID{
				Title:   item.Get(colTitle).String(),
				Heading: item.Get(colHeading).String(),
			},
			Content: item.Get(colContent).String(),
		}
		if tokens := item.Get(colTokens); tokens.Exists() {
			s.Tokens = int(tokens.Int())
		} else {
			s.Tokens = EstimateTokens(s.Content)
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// WriteSectionsCSV writes sections in the format read by ReadSectionsCSV.
func WriteSectionsCSV(w io.Writer, sections []Section) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{colTitle, colHeading, colContent, colTokens}); err != nil {
		return err
	}
	for _, s := range sections {
		if err := cw.Write([]string{s.ID.Title, s.ID.Heading, s.Content, strconv.Itoa(s.Tokens)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EstimateTokens approximates a token count by counting words.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}
