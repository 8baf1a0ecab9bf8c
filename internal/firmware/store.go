package firmware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"calcfleet/internal/logs"
	"calcfleet/internal/models"
)

var (
	ErrNotFound            = errors.New("firmware not found")
	ErrBadVersion          = errors.New("bad firmware version")
	ErrUpstreamUnavailable = errors.New("firmware origin unavailable")
)

// Store — контент-адресуемый кэш артефактов прошивок: по файлу на версию
// плюс manifest.json (новые записи первыми). Манифест — восстановимый
// индекс: если файл потерян или побит, он пересобирается сканом каталога.
type Store struct {
	dir    string
	origin *Origin // nil — только локальный кэш

	mu sync.Mutex // манифест и каталог

	// Кэш дайджестов на время жизни процесса, без вытеснения.
	dmu     sync.RWMutex
	digests map[string]string
}

func NewStore(root string, origin *Origin) *Store {
	dir := filepath.Join(root, "firmware")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logs.Logger.Warnf("firmware: mkdir %s: %v", dir, err)
	}
	return &Store{dir: dir, origin: origin, digests: make(map[string]string)}
}

// SanitizeVersion оставляет только безопасные символы имени файла.
func SanitizeVersion(v string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(v) {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Store) manifestPath() string { return filepath.Join(s.dir, "manifest.json") }
func (s *Store) artifactPath(version string) string {
	return filepath.Join(s.dir, version+".bin")
}

// Publish сохраняет байты артефакта, считает дайджест (никогда не
// доверяя присланному) и вставляет/замещает запись манифеста.
func (s *Store) Publish(version string, data []byte, description string) (*models.FirmwareArtifact, error) {
	v := SanitizeVersion(version)
	if v == "" || len(data) == 0 {
		return nil, ErrBadVersion
	}
	if err := os.WriteFile(s.artifactPath(v), data, 0o644); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	s.putDigest(v, digest)

	art := models.FirmwareArtifact{
		Version:     v,
		Size:        int64(len(data)),
		SHA256:      digest,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	manifest := s.loadManifestLocked()
	manifest = removeEntry(manifest, v)
	manifest = append([]models.FirmwareArtifact{art}, manifest...)
	if err := s.saveManifestLocked(manifest); err != nil {
		return nil, err
	}
	return &art, nil
}

// Fetch отдаёт байты артефакта: локальный кэш, иначе удалённый источник
// с ограниченным таймаутом (удача — байты докэшируются локально).
func (s *Store) Fetch(ctx context.Context, version string) ([]byte, *models.FirmwareArtifact, error) {
	v := SanitizeVersion(version)
	if v == "" {
		return nil, nil, ErrBadVersion
	}
	if data, err := os.ReadFile(s.artifactPath(v)); err == nil {
		art := s.manifestEntry(v)
		if art == nil {
			art = &models.FirmwareArtifact{Version: v, Size: int64(len(data)), CreatedAt: time.Now().UTC()}
		}
		art.SHA256 = s.Digest(v)
		return data, art, nil
	}
	if s.origin == nil {
		return nil, nil, ErrNotFound
	}
	data, err := s.origin.Fetch(ctx, v)
	if err != nil {
		return nil, nil, err
	}
	art, err := s.cacheFromOrigin(v, data)
	if err != nil {
		// Кэш не записался — байты всё равно можно отдать.
		logs.Logger.Warnf("firmware: cache %s from origin: %v", v, err)
		art = &models.FirmwareArtifact{Version: v, Size: int64(len(data)), CreatedAt: time.Now().UTC()}
	}
	return data, art, nil
}

// Available отвечает, достижим ли артефакт: локально или лёгкой пробой
// источника. Таймаут пробы трактуется как «недоступен», не наоборот.
func (s *Store) Available(ctx context.Context, version string) bool {
	v := SanitizeVersion(version)
	if v == "" {
		return false
	}
	if st, err := os.Stat(s.artifactPath(v)); err == nil && st.Size() > 0 {
		return true
	}
	if s.origin == nil {
		return false
	}
	ok, err := s.origin.Probe(ctx, v)
	if err != nil {
		logs.Logger.Debugf("firmware: probe %s: %v", v, err)
		return false
	}
	return ok
}

// List — манифест, новые записи первыми.
func (s *Store) List() []models.FirmwareArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadManifestLocked()
}

// Latest — самая свежая запись манифеста (nil — пусто).
func (s *Store) Latest() *models.FirmwareArtifact {
	manifest := s.List()
	if len(manifest) == 0 {
		return nil
	}
	out := manifest[0]
	return &out
}

// Digest возвращает hex sha256 артефакта ("" — байтов нет локально).
// Считается лениво и кэшируется на время жизни процесса.
func (s *Store) Digest(version string) string {
	v := SanitizeVersion(version)
	s.dmu.RLock()
	d, ok := s.digests[v]
	s.dmu.RUnlock()
	if ok {
		return d
	}
	data, err := os.ReadFile(s.artifactPath(v))
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	d = hex.EncodeToString(sum[:])
	s.putDigest(v, d)
	return d
}

// Delete убирает байты и запись манифеста. Частичная неудача не страшна:
// манифест самовосстанавливается из каталога.
func (s *Store) Delete(version string) error {
	v := SanitizeVersion(version)
	if v == "" {
		return ErrBadVersion
	}
	removedBytes := true
	if err := os.Remove(s.artifactPath(v)); err != nil {
		if !os.IsNotExist(err) {
			logs.Logger.Warnf("firmware: delete bytes %s: %v", v, err)
		}
		removedBytes = false
	}
	s.dmu.Lock()
	delete(s.digests, v)
	s.dmu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	manifest := s.loadManifestLocked()
	trimmed := removeEntry(manifest, v)
	removedEntry := len(trimmed) != len(manifest)
	if removedEntry {
		if err := s.saveManifestLocked(trimmed); err != nil {
			logs.Logger.Warnf("firmware: update manifest after delete %s: %v", v, err)
		}
	}
	if !removedBytes && !removedEntry {
		return ErrNotFound
	}
	return nil
}

// ClearAll выносит все артефакты и обнуляет манифест.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			logs.Logger.Warnf("firmware: clear %s: %v", e.Name(), err)
		}
	}
	s.dmu.Lock()
	s.digests = make(map[string]string)
	s.dmu.Unlock()
	return s.saveManifestLocked(nil)
}

// ---- манифест ----

func (s *Store) manifestEntry(version string) *models.FirmwareArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.loadManifestLocked() {
		if a.Version == version {
			out := a
			return &out
		}
	}
	return nil
}

// loadManifestLocked читает манифест; потерянный или битый файл
// пересобирается сканом каталога артефактов.
func (s *Store) loadManifestLocked() []models.FirmwareArtifact {
	data, err := os.ReadFile(s.manifestPath())
	if err == nil {
		var manifest []models.FirmwareArtifact
		if json.Unmarshal(data, &manifest) == nil {
			return manifest
		}
		logs.Logger.Errorf("firmware: corrupt manifest, rebuilding from directory")
	}
	manifest := s.rebuildLocked()
	if len(manifest) > 0 {
		if err := s.saveManifestLocked(manifest); err != nil {
			logs.Logger.Warnf("firmware: save rebuilt manifest: %v", err)
		}
	}
	return manifest
}

func (s *Store) rebuildLocked() []models.FirmwareArtifact {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var manifest []models.FirmwareArtifact
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".bin") {
			continue
		}
		st, err := e.Info()
		if err != nil {
			continue
		}
		manifest = append(manifest, models.FirmwareArtifact{
			Version:   strings.TrimSuffix(name, ".bin"),
			Size:      st.Size(),
			CreatedAt: st.ModTime().UTC(),
		})
	}
	sort.Slice(manifest, func(i, j int) bool {
		return manifest[i].CreatedAt.After(manifest[j].CreatedAt)
	})
	return manifest
}

func (s *Store) saveManifestLocked(manifest []models.FirmwareArtifact) error {
	if manifest == nil {
		manifest = []models.FirmwareArtifact{}
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.manifestPath(), data, 0o644)
}

func (s *Store) cacheFromOrigin(version string, data []byte) (*models.FirmwareArtifact, error) {
	if err := os.WriteFile(s.artifactPath(version), data, 0o644); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	s.putDigest(version, digest)

	art := models.FirmwareArtifact{
		Version:   version,
		Size:      int64(len(data)),
		SHA256:    digest,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	manifest := s.loadManifestLocked()
	if e := findEntry(manifest, version); e == nil {
		manifest = append([]models.FirmwareArtifact{art}, manifest...)
		if err := s.saveManifestLocked(manifest); err != nil {
			return &art, err
		}
	}
	return &art, nil
}

func (s *Store) putDigest(version, digest string) {
	s.dmu.Lock()
	s.digests[version] = digest
	s.dmu.Unlock()
}

func removeEntry(manifest []models.FirmwareArtifact, version string) []models.FirmwareArtifact {
	out := manifest[:0]
	for _, a := range manifest {
		if a.Version != version {
			out = append(out, a)
		}
	}
	return out
}

func findEntry(manifest []models.FirmwareArtifact, version string) *models.FirmwareArtifact {
	for i := range manifest {
		if manifest[i].Version == version {
			return &manifest[i]
		}
	}
	return nil
}
