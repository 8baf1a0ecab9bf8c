package repo

import (
	"sync"

	"gorm.io/gorm"

	"calcfleet/internal/db"
	"calcfleet/internal/logs"
	"calcfleet/internal/models"
)

// ConnState — состояние реляционного подключения шлюза.
type ConnState int32

const (
	Disconnected ConnState = iota
	Ready
)

// Gateway прячет за одним API реляционную БД (опциональную) и файловое
// хранилище. Подключение к БД ленивое: неудачная попытка логируется и НЕ
// отключает дальнейшие — каждый следующий вызов пробует снова. Пока
// подключения нет, все операции прозрачно уходят в файловый бэкенд.
type Gateway struct {
	driver string
	dsn    string
	files  *fileStore

	mu sync.Mutex
	dbh *gorm.DB
}

func NewGateway(driver, dsn, storeDir string) *Gateway {
	return &Gateway{driver: driver, dsn: dsn, files: newFileStore(storeDir)}
}

// Configured сообщает, задан ли реляционный бэкенд в конфиге.
func (g *Gateway) Configured() bool { return g.driver != "" }

// State — текущее состояние подключения (без попытки коннекта).
func (g *Gateway) State() ConnState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dbh != nil {
		return Ready
	}
	return Disconnected
}

// DB возвращает живой хэндл или nil. При nil-хэндле делает одну попытку
// подключения; схема наращивается идемпотентно при каждом успешном коннекте.
func (g *Gateway) DB() *gorm.DB {
	if g.driver == "" {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dbh != nil {
		return g.dbh
	}
	d, err := db.Open(g.driver, g.dsn)
	if err != nil {
		logs.Logger.Warnf("gateway: db connect failed, will retry on next call: %v", err)
		return nil
	}
	sqlDB, err := d.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		logs.Logger.Warnf("gateway: db unreachable, will retry on next call: %v", err)
		return nil
	}
	// Добавляющая миграция: новые nullable-колонки, безопасно на каждом старте.
	if err := d.AutoMigrate(&models.Device{}, &models.Account{}, &models.Note{}); err != nil {
		logs.Logger.Warnf("gateway: db migrate failed, will retry on next call: %v", err)
		return nil
	}
	logs.Logger.Infof("gateway: relational backend ready (%s)", g.driver)
	g.dbh = d
	return g.dbh
}

// Dir — корень файлового хранилища (firmware-кэш живёт там же).
func (g *Gateway) Dir() string { return g.files.dir }
