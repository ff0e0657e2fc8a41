package ingest

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/pkg/errors"
)

// kgxNode is one node line of the KGX export. Every clique member becomes a
// node carrying the whole clique's identifier list.
type kgxNode struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Category              string   `json:"category"`
	EquivalentIdentifiers []string `json:"equivalent_identifiers"`
}

// kgxEdge links two members of the same clique.
type kgxEdge struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

const kgxPredicate = "biolink:same_as"

// ConvertToKGX validates each compendium file and writes the KGX node and
// edge files. Edges are the pairwise combinations of each clique's members,
// keyed by a digest of the pair and its source file.
func (l *Loader) ConvertToKGX(compendia []string, nodesPath, edgesPath string) error {
	for _, path := range compendia {
		if err := ValidateCompendium(path, l.schema); err != nil {
			return err
		}
	}

	nodeFile, err := os.Create(nodesPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to create %q", nodesPath))
	}
	defer nodeFile.Close()
	edgeFile, err := os.Create(edgesPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to create %q", edgesPath))
	}
	defer edgeFile.Close()

	nodeOut := bufio.NewWriter(nodeFile)
	edgeOut := bufio.NewWriter(edgeFile)
	nodeEnc := json.NewEncoder(nodeOut)
	nodeEnc.SetEscapeHTML(false)
	edgeEnc := json.NewEncoder(edgeOut)
	edgeEnc.SetEscapeHTML(false)

	nodes, edges := 0, 0
	for _, path := range compendia {
		n, e, err := l.convertFile(path, nodeEnc, edgeEnc)
		if err != nil {
			return err
		}
		nodes += n
		edges += e
	}

	if err := nodeOut.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead, "failed to flush node file")
	}
	if err := edgeOut.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead, "failed to flush edge file")
	}

	l.logger.Info("KGX export complete",
		logging.Int("nodes", nodes),
		logging.Int("edges", edges),
	)
	return nil
}

func (l *Loader) convertFile(path string, nodeEnc, edgeEnc *json.Encoder) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to open compendium %q", path))
	}
	defer f.Close()

	source := filepath.Base(path)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	nodes, edges, lineNo := 0, 0, 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var line cliqueLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nodes, edges, errors.Wrap(err, errors.ErrCodeCompendiumRead,
				fmt.Sprintf("%s line %d is not parseable", path, lineNo))
		}
		var members []memberID
		if err := json.Unmarshal(line.Identifiers, &members); err != nil {
			return nodes, edges, errors.Wrap(err, errors.ErrCodeCompendiumRead,
				fmt.Sprintf("%s line %d has malformed identifiers", path, lineNo))
		}
		if len(members) == 0 {
			continue
		}

		equivalents := make([]string, len(members))
		for i, member := range members {
			equivalents[i] = member.Identifier
		}

		for _, member := range members {
			node := kgxNode{
				ID:                    member.Identifier,
				Name:                  member.Label,
				Category:              line.Type,
				EquivalentIdentifiers: equivalents,
			}
			if err := nodeEnc.Encode(node); err != nil {
				return nodes, edges, errors.Wrap(err, errors.ErrCodeSerialization, "failed to write node")
			}
			nodes++
		}

		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				edge := kgxEdge{
					ID:        pairDigest(members[i].Identifier, members[j].Identifier, source),
					Subject:   members[i].Identifier,
					Predicate: kgxPredicate,
					Object:    members[j].Identifier,
				}
				if err := edgeEnc.Encode(edge); err != nil {
					return nodes, edges, errors.Wrap(err, errors.ErrCodeSerialization, "failed to write edge")
				}
				edges++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nodes, edges, errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to read compendium %q", path))
	}
	return nodes, edges, nil
}

func pairDigest(subject, object, source string) string {
	sum := md5.Sum([]byte(subject + object + source))
	return hex.EncodeToString(sum[:])
}
