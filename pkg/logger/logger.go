// Package logger, logrus tabanlı yapılandırılmış loglama kurulumunu sağlar.
//
// Her bileşen kendi "component" alanıyla türetilmiş bir entry alır:
//
//	log := logger.New("info", "text")
//	wsLog := log.WithField("component", "ws")
//	wsLog.WithField("actor", "staff").Info("connected")
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New, verilen seviye ve formatta bir logger oluşturur.
// Tanınmayan seviye info'ya, tanınmayan format text'e düşer.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput, çıktıyı belirtilen writer'a yönlendirir (testler için).
func NewWithOutput(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Discard, hiçbir şey yazmayan logger. Testlerde ve opsiyonel bağımlılıklarda kullanılır.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Component, bileşen alanlı bir entry döner.
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	if l == nil {
		l = Discard()
	}
	return l.WithField("component", name)
}
