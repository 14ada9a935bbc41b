package claude

import (
	"bufio"
	"io"
	stdlog "log"
	"os"

	"github.com/hpcloud/tail"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/taskdeck/core/pkg/pathenc"
)

// historyEntry is one session-log line reduced to what identity resolution
// needs.
type historyEntry struct {
	sessionID string
	cwd       string
}

// parseHistoryLine extracts the session id and working directory from one
// history.jsonl line. Both fields have two spellings in the wild.
func parseHistoryLine(line string) (historyEntry, bool) {
	if !gjson.Valid(line) {
		return historyEntry{}, false
	}
	id := gjson.Get(line, "sessionId").String()
	if id == "" {
		id = gjson.Get(line, "session_id").String()
	}
	cwd := gjson.Get(line, "cwd").String()
	if cwd == "" {
		cwd = gjson.Get(line, "project").String()
	}
	if id == "" && cwd == "" {
		return historyEntry{}, false
	}
	return historyEntry{sessionID: id, cwd: cwd}, true
}

// readHistory parses the whole session log into a session→cwd map plus the
// ordered list of distinct cwds seen. Later lines win: the log is
// append-only, so the last mapping is the current one. A missing log is an
// empty result.
func readHistory(path string) (map[string]string, []string) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	byID := make(map[string]string)
	var cwds []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		entry, ok := parseHistoryLine(scanner.Text())
		if !ok || entry.cwd == "" {
			continue
		}
		if entry.sessionID != "" {
			byID[entry.sessionID] = entry.cwd
		}
		if !seen[entry.cwd] {
			seen[entry.cwd] = true
			cwds = append(cwds, entry.cwd)
		}
	}
	return byID, cwds
}

// logFollower tails history.jsonl and writes validated cwd markers through
// the write-once metadata cache. It reads from the start so mappings for
// already-known sessions seed the cache on the first watch.
type logFollower struct {
	tailer *tail.Tail
	cache  *pathenc.MetadataCache
	oracle pathenc.Oracle
	log    *logrus.Entry
}

func newLogFollower(historyPath string, cache *pathenc.MetadataCache, oracle pathenc.Oracle, log *logrus.Entry) (*logFollower, error) {
	t, err := tail.TailFile(historyPath, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return nil, err
	}

	return &logFollower{
		tailer: t,
		cache:  cache,
		oracle: oracle,
		log:    log,
	}, nil
}

func (f *logFollower) run() {
	for line := range f.tailer.Lines {
		if line.Err != nil {
			continue
		}
		f.ingest(line.Text)
	}
}

// ingest validates one log line's cwd against the filesystem and persists it
// for its flattened directory. Put is write-once and no-ops when the
// directory does not exist, so replayed lines are cheap.
func (f *logFollower) ingest(text string) {
	entry, ok := parseHistoryLine(text)
	if !ok || entry.cwd == "" {
		return
	}
	if !f.oracle.Exists(entry.cwd) {
		return
	}
	flattened := pathenc.Flatten(entry.cwd)
	if err := f.cache.Put(flattened, entry.cwd); err != nil {
		f.log.WithError(err).WithField("dir", flattened).Debug("Failed to persist cwd marker")
	}
}

func (f *logFollower) stop() {
	_ = f.tailer.Stop()
	f.tailer.Cleanup()
}
