// Package store keeps decoded ROTRAJ files in a SQLite database, so a range of days
// can be queried without reading and decoding the ROTRAJ files again.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rmera/rotraj"
	"gonum.org/v1/gonum/mat"
)

// ErrFileNotFound indicates the requested file is not in the store.
var ErrFileNotFound = errors.New("file not found in store")

// Store is the SQLite database handle.
type Store struct {
	db *sql.DB
}

// FileInfo describes a file in the store.
type FileInfo struct {
	ID           int64     `json:"id" yaml:"id"`
	Path         string    `json:"path" yaml:"path"`
	BaseTime     time.Time `json:"base_time" yaml:"base_time"`
	Trajectories int       `json:"trajectories" yaml:"trajectories"`
	Rows         int       `json:"rows" yaml:"rows"`
	ImportedAt   time.Time `json:"imported_at" yaml:"imported_at"`
}

// ReleaseMean is the mean of a column over all the rows released at a given time.
type ReleaseMean struct {
	Release time.Time `json:"release" yaml:"release"`
	Mean    float64   `json:"mean" yaml:"mean"`
	Count   int       `json:"count" yaml:"count"`
}

// DB returns the underlying sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			base_time INTEGER NOT NULL,  -- Unix seconds
			header TEXT NOT NULL,        -- JSON
			columns TEXT NOT NULL,       -- JSON array of value column names
			imported_at INTEGER NOT NULL
		);

		-- One row per trajectory row. vals is a JSON array, in the order of files.columns.
		CREATE TABLE IF NOT EXISTS points (
			file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			number INTEGER NOT NULL,
			intervals INTEGER NOT NULL,
			cluster INTEGER NOT NULL,
			released_at INTEGER NOT NULL, -- Unix nanoseconds
			row_idx INTEGER NOT NULL,
			step INTEGER NOT NULL,
			vals TEXT NOT NULL,
			PRIMARY KEY (file_id, position, row_idx)
		);

		CREATE INDEX IF NOT EXISTS idx_points_release ON points(released_at);
		CREATE INDEX IF NOT EXISTS idx_points_cluster ON points(cluster);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Insert stores a decoded file under the given path, replacing any earlier version of it,
// in a single transaction. It returns the id of the file in the store.
func (s *Store) Insert(path string, T *rotraj.Table, H *rotraj.Header) (int64, error) {
	if H == nil {
		return 0, rotraj.NewValidationError(path, "store.Insert", "a header is needed")
	}
	hj, err := json.Marshal(H)
	if err != nil {
		return 0, err
	}
	cj, err := json.Marshal(T.Columns())
	if err != nil {
		return 0, err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM points WHERE file_id IN (SELECT id FROM files WHERE path = ?)`, path); err != nil {
		return 0, fmt.Errorf("failed to remove old points: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return 0, fmt.Errorf("failed to remove old file: %w", err)
	}
	res, err := tx.Exec(`INSERT INTO files (path, base_time, header, columns, imported_at) VALUES (?, ?, ?, ?, ?)`,
		path, H.TrajectoryBaseTime.Unix(), string(hj), string(cj), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO points (file_id, position, number, intervals, cluster, released_at, row_idx, step, vals)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare point insert: %w", err)
	}
	defer stmt.Close()
	for i := 0; i < T.NTraj(); i++ {
		tr := T.Traj(i)
		for r := 0; r < tr.Len(); r++ {
			vj, err := json.Marshal(tr.Row(r))
			if err != nil {
				return 0, fmt.Errorf("trajectory %d row %d: %w", tr.Number, r, err)
			}
			if _, err := stmt.Exec(id, tr.Position, tr.Number, tr.Intervals, tr.Cluster, tr.Release.UnixNano(), r, tr.Steps[r], string(vj)); err != nil {
				return 0, fmt.Errorf("failed to insert point: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return id, nil
}

// Files returns the files in the store, in ascending order of base time.
func (s *Store) Files() ([]FileInfo, error) {
	rows, err := s.db.Query(`
		SELECT f.id, f.path, f.base_time, f.imported_at,
			(SELECT COUNT(DISTINCT position) FROM points p WHERE p.file_id = f.id),
			(SELECT COUNT(*) FROM points p WHERE p.file_id = f.id)
		FROM files f
		ORDER BY f.base_time, f.path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()
	var out []FileInfo
	for rows.Next() {
		var f FileInfo
		var base, imported int64
		if err := rows.Scan(&f.ID, &f.Path, &base, &imported, &f.Trajectories, &f.Rows); err != nil {
			return nil, err
		}
		f.BaseTime = time.Unix(base, 0).UTC()
		f.ImportedAt = time.Unix(imported, 0).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) fileByPath(path string) (id int64, H *rotraj.Header, cols []string, err error) {
	var hj, cj string
	err = s.db.QueryRow(`SELECT id, header, columns FROM files WHERE path = ?`, path).Scan(&id, &hj, &cj)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return 0, nil, nil, err
	}
	H = new(rotraj.Header)
	if err := json.Unmarshal([]byte(hj), H); err != nil {
		return 0, nil, nil, fmt.Errorf("corrupt header for %s: %w", path, err)
	}
	if err := json.Unmarshal([]byte(cj), &cols); err != nil {
		return 0, nil, nil, fmt.Errorf("corrupt columns for %s: %w", path, err)
	}
	return id, H, cols, nil
}

// Load rebuilds the table and header stored under path.
func (s *Store) Load(path string) (*rotraj.Table, *rotraj.Header, error) {
	id, H, cols, err := s.fileByPath(path)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.db.Query(`
		SELECT position, number, intervals, cluster, released_at, step, vals
		FROM points WHERE file_id = ?
		ORDER BY position, row_idx
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()
	T := rotraj.NewTable(cols)
	var cur *rotraj.Trajectory
	var data []float64
	flush := func() error {
		if cur == nil {
			return nil
		}
		cur.Values = mat.NewDense(len(cur.Steps), len(cols), data)
		data = nil
		return T.Add(cur)
	}
	for rows.Next() {
		var pos, number, intervals, cluster, step int
		var release int64
		var vj string
		if err := rows.Scan(&pos, &number, &intervals, &cluster, &release, &step, &vj); err != nil {
			return nil, nil, err
		}
		if cur == nil || cur.Position != pos {
			if err := flush(); err != nil {
				return nil, nil, err
			}
			cur = &rotraj.Trajectory{
				Block:    &rotraj.Block{Number: number, Intervals: intervals},
				Position: pos,
				Cluster:  cluster,
				Release:  time.Unix(0, release).UTC(),
			}
		}
		var vals []float64
		if err := json.Unmarshal([]byte(vj), &vals); err != nil || len(vals) != len(cols) {
			return nil, nil, fmt.Errorf("corrupt values for trajectory %d in %s", number, path)
		}
		cur.Steps = append(cur.Steps, step)
		data = append(data, vals...)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if err := flush(); err != nil {
		return nil, nil, err
	}
	return T, H, nil
}

// MeanByRelease returns the mean of the named column over all the rows of all the files
// in the store that share a release time, in ascending order of release time.
// Files without the column are ignored; if no file has it, a *rotraj.ValidationError is returned.
func (s *Store) MeanByRelease(column string) ([]ReleaseMean, error) {
	frows, err := s.db.Query(`SELECT id, columns FROM files`)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	idx := make(map[int64]int)
	for frows.Next() {
		var id int64
		var cj string
		var cols []string
		if err := frows.Scan(&id, &cj); err != nil {
			frows.Close()
			return nil, err
		}
		if err := json.Unmarshal([]byte(cj), &cols); err != nil {
			frows.Close()
			return nil, fmt.Errorf("corrupt columns for file %d: %w", id, err)
		}
		for j, c := range cols {
			if c == column {
				idx[id] = j
			}
		}
	}
	frows.Close()
	if err := frows.Err(); err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return nil, rotraj.NewValidationError(column, "store.MeanByRelease", "column not found in any file")
	}
	type acc struct {
		sum float64
		n   int
	}
	sums := make(map[int64]*acc)
	for id, j := range idx {
		rows, err := s.db.Query(`
			SELECT released_at, SUM(json_extract(vals, '$[' || ? || ']')), COUNT(*)
			FROM points WHERE file_id = ?
			GROUP BY released_at
		`, j, id)
		if err != nil {
			return nil, fmt.Errorf("failed to query points: %w", err)
		}
		for rows.Next() {
			var release int64
			var sum float64
			var n int
			if err := rows.Scan(&release, &sum, &n); err != nil {
				rows.Close()
				return nil, err
			}
			a, ok := sums[release]
			if !ok {
				a = new(acc)
				sums[release] = a
			}
			a.sum += sum
			a.n += n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	out := make([]ReleaseMean, 0, len(sums))
	for r, a := range sums {
		out = append(out, ReleaseMean{Release: time.Unix(0, r).UTC(), Mean: a.sum / float64(a.n), Count: a.n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Release.Before(out[j].Release) })
	return out, nil
}
