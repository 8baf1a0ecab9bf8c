package repo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"calcfleet/internal/logs"
	"calcfleet/internal/models"
)

// fileStore — файловый бэкенд шлюза: по JSON-документу на логическую
// таблицу плюс notes/<mac>.txt. Всегда доступен; переписывает файл целиком
// под общим мьютексом. Мьютекс защищает только этот процесс — конкурентные
// писатели из разных процессов не сериализуются.
type fileStore struct {
	dir string
	mu  sync.Mutex
}

func newFileStore(dir string) *fileStore {
	for _, d := range []string{dir, filepath.Join(dir, "notes")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			logs.Logger.Warnf("store: mkdir %s: %v", d, err)
		}
	}
	return &fileStore{dir: dir}
}

func (f *fileStore) devicesFile() string  { return filepath.Join(f.dir, "devices.json") }
func (f *fileStore) pinsFile() string     { return filepath.Join(f.dir, "pair-pins.json") }
func (f *fileStore) ownersFile() string   { return filepath.Join(f.dir, "owners.json") }
func (f *fileStore) accountsFile() string { return filepath.Join(f.dir, "accounts.json") }
func (f *fileStore) noteFile(mac string) string {
	return filepath.Join(f.dir, "notes", mac+".txt")
}

// readJSON/writeJSON — чтение и полная перезапись keyed-документа.
func readJSON[T any](path string) map[string]T {
	out := map[string]T{}
	data, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		logs.Logger.Errorf("store: corrupt %s: %v", filepath.Base(path), err)
		return map[string]T{}
	}
	return out
}

func writeJSON[T any](path string, m map[string]T) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ---- devices ----

func (f *fileStore) device(mac string) (*models.Device, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := readJSON[models.Device](f.devicesFile())[mac]
	if !ok {
		return nil, false
	}
	return &d, true
}

func (f *fileStore) putDevice(d *models.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := readJSON[models.Device](f.devicesFile())
	m[d.MAC] = *d
	return writeJSON(f.devicesFile(), m)
}

func (f *fileStore) listDevices() []models.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := readJSON[models.Device](f.devicesFile())
	out := make([]models.Device, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	return out
}

// ---- pairing codes (легаси-файл pair-pins.json, mac -> CODE) ----

func (f *fileStore) pairCode(mac string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return readJSON[string](f.pinsFile())[mac]
}

func (f *fileStore) setPairCode(mac, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := readJSON[string](f.pinsFile())
	m[mac] = code
	return writeJSON(f.pinsFile(), m)
}

func (f *fileStore) deletePairCode(mac string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := readJSON[string](f.pinsFile())
	if _, ok := m[mac]; !ok {
		return
	}
	delete(m, mac)
	if err := writeJSON(f.pinsFile(), m); err != nil {
		logs.Logger.Warnf("store: drop migrated pin %s: %v", mac, err)
	}
}

func (f *fileStore) resolvePairCode(code string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for mac, c := range readJSON[string](f.pinsFile()) {
		if strings.EqualFold(c, code) {
			return mac, true
		}
	}
	return "", false
}

// ---- ownership (owners.json, mac -> username) ----

func (f *fileStore) owner(mac string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return readJSON[string](f.ownersFile())[mac]
}

func (f *fileStore) setOwner(mac, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := readJSON[string](f.ownersFile())
	if username == "" {
		delete(m, mac)
	} else {
		m[mac] = username
	}
	return writeJSON(f.ownersFile(), m)
}

func (f *fileStore) ownedBy(username string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for mac, u := range readJSON[string](f.ownersFile()) {
		if u == username {
			out = append(out, mac)
		}
	}
	return out
}

// ---- accounts (accounts.json, username -> Account) ----

func (f *fileStore) account(username string) (*models.Account, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := readJSON[models.Account](f.accountsFile())[username]
	if !ok {
		return nil, false
	}
	return &a, true
}

func (f *fileStore) putAccount(a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := readJSON[models.Account](f.accountsFile())
	m[a.Username] = *a
	return writeJSON(f.accountsFile(), m)
}

// ---- notes (notes/<mac>.txt) ----

func (f *fileStore) notes(mac string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.noteFile(mac))
	if err != nil {
		return ""
	}
	return string(data)
}

func (f *fileStore) writeNotes(mac, text string, appendMode bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := f.noteFile(mac)
	if appendMode {
		if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
			text = string(prev) + "\n" + text
		}
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func (f *fileStore) deleteNotes(mac string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.noteFile(mac)); err != nil && !os.IsNotExist(err) {
		logs.Logger.Warnf("store: delete notes %s: %v", mac, err)
	}
}
