package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/op/go-logging"
)

const moduleName = "3x-ui-bot"

// LogFile 本地日志文件名
const LogFile = "bot.log"

type bufferEntry struct {
	time  string
	level logging.Level
	log   string
}

var (
	logger          *logging.Logger
	logBuffer       []bufferEntry
	logBufferMu     sync.Mutex
	localLogEnabled bool
)

func init() {
	// 默认仅输出到控制台
	InitLogger(INFO, false)
}

// InitLogger 初始化日志后端。enabled 为 true 时同时写入本地文件 bot.log。
func InitLogger(level Level, enabled bool) {
	localLogEnabled = enabled
	newLogger := logging.MustGetLogger(moduleName)

	format := logging.MustStringFormatter(`%{time:2006/01/02 15:04:05} %{level} - %{message}`)

	console := logging.AddModuleLevel(logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), format))
	console.SetLevel(level.toLogging(), moduleName)
	backends := []logging.Backend{console}

	if enabled {
		file, err := os.OpenFile(LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "无法创建日志文件 %s: %v\n", LogFile, err)
		} else {
			// 文件中始终保留 DEBUG 级别，便于事后排查
			fileBackend := logging.AddModuleLevel(logging.NewBackendFormatter(logging.NewLogBackend(file, "", 0), format))
			fileBackend.SetLevel(logging.DEBUG, moduleName)
			backends = append(backends, fileBackend)
		}
	}

	// 各后端自行按级别过滤
	multi := logging.MultiLogger(backends...)
	multi.SetLevel(logging.DEBUG, moduleName)

	newLogger.SetBackend(multi)
	logger = newLogger
}

func Debug(args ...any) {
	logger.Debug(args...)
	addToBuffer("DEBUG", fmt.Sprint(args...))
}

func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
	addToBuffer("DEBUG", fmt.Sprintf(format, args...))
}

func Info(args ...any) {
	logger.Info(args...)
	addToBuffer("INFO", fmt.Sprint(args...))
}

func Infof(format string, args ...any) {
	logger.Infof(format, args...)
	addToBuffer("INFO", fmt.Sprintf(format, args...))
}

func Notice(args ...any) {
	logger.Notice(args...)
	addToBuffer("NOTICE", fmt.Sprint(args...))
}

func Noticef(format string, args ...any) {
	logger.Noticef(format, args...)
	addToBuffer("NOTICE", fmt.Sprintf(format, args...))
}

func Warning(args ...any) {
	logger.Warning(args...)
	addToBuffer("WARNING", fmt.Sprint(args...))
}

func Warningf(format string, args ...any) {
	logger.Warningf(format, args...)
	addToBuffer("WARNING", fmt.Sprintf(format, args...))
}

func Error(args ...any) {
	logger.Error(args...)
	addToBuffer("ERROR", fmt.Sprint(args...))
}

func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
	addToBuffer("ERROR", fmt.Sprintf(format, args...))
}

func addToBuffer(level string, newLog string) {
	maxSize := 1000
	if localLogEnabled {
		maxSize = 10240
	}

	logLevel, _ := logging.LogLevel(level)

	logBufferMu.Lock()
	defer logBufferMu.Unlock()
	if len(logBuffer) >= maxSize {
		logBuffer = logBuffer[1:]
	}
	logBuffer = append(logBuffer, bufferEntry{
		time:  time.Now().Format("2006/01/02 15:04:05"),
		level: logLevel,
		log:   newLog,
	})
}

// GetLogs 返回最近 c 条不低于 level 的日志，最新的在前
func GetLogs(c int, level string) []string {
	var output []string
	logLevel, _ := logging.LogLevel(level)

	logBufferMu.Lock()
	defer logBufferMu.Unlock()
	for i := len(logBuffer) - 1; i >= 0 && len(output) < c; i-- {
		if logBuffer[i].level <= logLevel {
			output = append(output, fmt.Sprintf("%s %s - %s", logBuffer[i].time, logBuffer[i].level, logBuffer[i].log))
		}
	}
	return output
}
