package cast

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/artpar/termcast/internal/logging"
)

// supportedVersion is the only asciicast version this module reads or
// writes. load_cast_file in the original implementation treats a
// mismatch as fatal; we do the same.
const supportedVersion = 2

// Load reads a complete recording from path. Malformed event lines are
// skipped with a warning rather than aborting the load, matching
// load_cast_file's behavior; a missing or wrong-version header is fatal.
func Load(path string) (*Recording, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cast: open recording: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	rec := &Recording{}

	headerFound := false
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		if err := json.Unmarshal(scanner.Bytes(), &rec.Header); err != nil {
			return nil, fmt.Errorf("cast: parse header: %w", err)
		}
		headerFound = true
		break
	}
	if !headerFound {
		return nil, fmt.Errorf("cast: empty recording file")
	}
	if rec.Header.Version != supportedVersion {
		return nil, fmt.Errorf("cast: unsupported version %d, want %d", rec.Header.Version, supportedVersion)
	}

	log := logging.WithComponent("cast")
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			log.Warn("skipping malformed event line", logging.F("error", err.Error()))
			continue
		}
		rec.Events = append(rec.Events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cast: read recording: %w", err)
	}

	return rec, nil
}
