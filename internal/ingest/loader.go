// Package ingest loads compendium and conflation files into the backing
// stores. It is the batch side of the service: the serve path only ever reads
// what this package writes.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/biograph-io/nodenorm/internal/biolink"
	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/pkg/errors"
)

// Writer is the block-flushing write surface of one store.
type Writer interface {
	Set(ctx context.Context, key, value string) error
	LPush(ctx context.Context, key string, values ...string) error
	Flush(ctx context.Context) error
	Written() int64
}

// Stores is the store surface ingestion needs: writers per store, plus the
// reads used to merge prefix statistics with what earlier runs left behind.
type Stores interface {
	Writer(store string) (Writer, error)
	Get(ctx context.Context, store, key string) (*string, error)
	LRange(ctx context.Context, store, key string, start, stop int64) ([]string, error)
}

// semanticTypesKey is the list in the prefix-count store naming every
// category seen across all loads.
const semanticTypesKey = "semantic_types"

// cliqueLine is one compendium record. Identifiers stays raw: it is stored
// verbatim and reparsed on the serve path.
type cliqueLine struct {
	Type        string          `json:"type"`
	IC          json.RawMessage `json:"ic"`
	Identifiers json.RawMessage `json:"identifiers"`
}

type memberID struct {
	Identifier string `json:"i"`
	Label      string `json:"l"`
}

// Loader writes compendium and conflation files into the stores, accumulating
// per-category prefix statistics as it goes.
type Loader struct {
	stores  Stores
	toolkit *biolink.Toolkit
	schema  *gojsonschema.Schema
	logger  logging.Logger

	// counts maps category -> CURIE prefix -> occurrences, accumulated
	// across every file in one run and merged into the store at the end.
	counts map[string]map[string]int
}

func NewLoader(stores Stores, toolkit *biolink.Toolkit, schema *gojsonschema.Schema, logger logging.Logger) *Loader {
	return &Loader{
		stores:  stores,
		toolkit: toolkit,
		schema:  schema,
		logger:  logger.Named("ingest"),
		counts:  map[string]map[string]int{},
	}
}

// Run validates every compendium file, loads them, loads the conflation
// files, and merges the accumulated prefix statistics. Validation of all
// files happens before any write so a bad file cannot leave a partial load.
func (l *Loader) Run(ctx context.Context, cfg config.IngestConfig) error {
	paths := make([]string, 0, len(cfg.DataFiles))
	for _, name := range cfg.DataFiles {
		paths = append(paths, filepath.Join(cfg.CompendiumDirectory, name))
	}

	for _, path := range paths {
		if err := ValidateCompendium(path, l.schema); err != nil {
			return err
		}
	}

	for _, path := range paths {
		if err := l.LoadCompendium(ctx, path); err != nil {
			return err
		}
	}

	for _, src := range cfg.Conflations {
		path := filepath.Join(cfg.ConflationDirectory, src.File)
		if err := l.LoadConflation(ctx, path, src.Store); err != nil {
			return err
		}
	}

	return l.FlushPrefixCounts(ctx)
}

// LoadCompendium streams one compendium file into the stores. Per line it
// writes the uppercased member-to-canonical mapping, the member list, the
// leaf category, and the information content when present.
func (l *Loader) LoadCompendium(ctx context.Context, path string) error {
	eqWriter, err := l.stores.Writer(config.StoreEqToCanon)
	if err != nil {
		return err
	}
	memberWriter, err := l.stores.Writer(config.StoreCanonMembers)
	if err != nil {
		return err
	}
	categoryWriter, err := l.stores.Writer(config.StoreCanonCategory)
	if err != nil {
		return err
	}
	icWriter, err := l.stores.Writer(config.StoreInfoContent)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to open compendium %q", path))
	}
	defer f.Close()

	log := l.logger.With(logging.String("file", filepath.Base(path)))
	log.Info("Loading compendium")

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var line cliqueLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return errors.Wrap(err, errors.ErrCodeCompendiumRead,
				fmt.Sprintf("%s line %d is not parseable", path, lineNo))
		}
		var members []memberID
		if err := json.Unmarshal(line.Identifiers, &members); err != nil {
			return errors.Wrap(err, errors.ErrCodeCompendiumRead,
				fmt.Sprintf("%s line %d has malformed identifiers", path, lineNo))
		}
		if len(members) == 0 {
			return errors.Newf(errors.ErrCodeCompendiumRead,
				"%s line %d has no identifiers", path, lineNo)
		}

		// The first member is the presorted best identifier: the clique's
		// canonical.
		canonical := members[0].Identifier

		for _, category := range l.toolkit.Ancestors(line.Type) {
			prefixes := l.counts[category]
			if prefixes == nil {
				prefixes = map[string]int{}
				l.counts[category] = prefixes
			}
			for _, member := range members {
				prefixes[curiePrefix(member.Identifier)]++
			}
		}

		for _, member := range members {
			if err := eqWriter.Set(ctx, strings.ToUpper(member.Identifier), canonical); err != nil {
				return err
			}
		}
		if err := memberWriter.Set(ctx, canonical, string(line.Identifiers)); err != nil {
			return err
		}
		if err := categoryWriter.Set(ctx, canonical, line.Type); err != nil {
			return err
		}
		if ic := icValue(line.IC); ic != "" {
			if err := icWriter.Set(ctx, canonical, ic); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to read compendium %q", path))
	}

	for _, w := range []Writer{eqWriter, memberWriter, categoryWriter, icWriter} {
		if err := w.Flush(ctx); err != nil {
			return err
		}
	}

	log.Info("Compendium loaded",
		logging.Int("lines", lineNo),
		logging.Int("mappings", int(eqWriter.Written())),
	)
	return nil
}

// LoadConflation streams one conflation file into the named store. Every line
// is a JSON array of canonical identifiers; the line is stored verbatim under
// each of its members so a lookup by any member finds the whole group.
func (l *Loader) LoadConflation(ctx context.Context, path, store string) error {
	writer, err := l.stores.Writer(store)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to open conflation %q", path))
	}
	defer f.Close()

	log := l.logger.With(
		logging.String("file", filepath.Base(path)),
		logging.String("store", store),
	)
	log.Info("Loading conflation")

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var group []string
		if err := json.Unmarshal([]byte(raw), &group); err != nil {
			return errors.Wrap(err, errors.ErrCodeCompendiumRead,
				fmt.Sprintf("%s line %d is not a list of identifiers", path, lineNo))
		}
		for _, identifier := range group {
			if err := writer.Set(ctx, identifier, raw); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to read conflation %q", path))
	}
	if err := writer.Flush(ctx); err != nil {
		return err
	}

	log.Info("Conflation loaded",
		logging.Int("lines", lineNo),
		logging.Int("mappings", int(writer.Written())),
	)
	return nil
}

// FlushPrefixCounts merges the accumulated per-category prefix statistics
// with what the store already holds and appends newly seen categories to the
// semantic-types list.
func (l *Loader) FlushPrefixCounts(ctx context.Context) error {
	if len(l.counts) == 0 {
		return nil
	}

	existing, err := l.stores.LRange(ctx, config.StorePrefixCounts, semanticTypesKey, 0, -1)
	if err != nil {
		return err
	}
	known := map[string]bool{}
	for _, t := range existing {
		known[t] = true
	}

	categories := make([]string, 0, len(l.counts))
	for category := range l.counts {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	writer, err := l.stores.Writer(config.StorePrefixCounts)
	if err != nil {
		return err
	}

	newTypes := make([]string, 0, len(categories))
	for _, category := range categories {
		if !known[category] {
			newTypes = append(newTypes, category)
		}
	}
	if len(newTypes) > 0 {
		if err := writer.LPush(ctx, semanticTypesKey, newTypes...); err != nil {
			return err
		}
	}

	for _, category := range categories {
		merged := l.counts[category]
		stored, err := l.stores.Get(ctx, config.StorePrefixCounts, category)
		if err != nil {
			return err
		}
		if stored != nil {
			var prior map[string]int
			if err := json.Unmarshal([]byte(*stored), &prior); err == nil {
				for prefix, n := range prior {
					merged[prefix] += n
				}
			} else {
				l.logger.Warn("Discarding malformed prefix counts",
					logging.String("category", category), logging.Err(err))
			}
		}
		encoded, err := json.Marshal(merged)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode prefix counts")
		}
		if err := writer.Set(ctx, category, string(encoded)); err != nil {
			return err
		}
	}
	if err := writer.Flush(ctx); err != nil {
		return err
	}

	l.logger.Info("Prefix statistics merged",
		logging.Int("categories", len(categories)),
		logging.Int("new_semantic_types", len(newTypes)),
	)
	l.counts = map[string]map[string]int{}
	return nil
}

// curiePrefix returns the namespace of a CURIE, or the whole identifier when
// it carries no colon.
func curiePrefix(curie string) string {
	if i := strings.Index(curie, ":"); i >= 0 {
		return curie[:i]
	}
	return curie
}

// icValue renders the optional ic field as the decimal string the
// information-content store keeps. Both "100" and 100 appear in the wild.
func icValue(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return trimmed
}
