package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SlipRecord представляет выданный слип в архиве
type SlipRecord struct {
	CandidateID int64     `json:"candidate_id"`
	DisplayName string    `json:"display_name"`
	InterviewID string    `json:"interview_id"`
	IssuedAt    time.Time `json:"issued_at"`
	Answers     []QA      `json:"answers"`
	Text        string    `json:"text"`
}

// Archive хранит копии выданных слипов в JSON файлах
type Archive struct {
	dir string
}

func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

// SaveSlip сохраняет слип в JSON файл, повторная выдача перезаписывает файл
func (a *Archive) SaveSlip(slip SlipRecord) error {
	// Создаем директорию если её нет
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return fmt.Errorf("ошибка создания директории %s: %w", a.dir, err)
	}

	path := filepath.Join(a.dir, slipFileName(slip.CandidateID))

	jsonData, err := json.MarshalIndent(slip, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации слипа: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}

	return nil
}

// LoadSlip загружает слип кандидата
func (a *Archive) LoadSlip(candidateID int64) (*SlipRecord, error) {
	path := filepath.Join(a.dir, slipFileName(candidateID))

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}

	var slip SlipRecord
	if err := json.Unmarshal(data, &slip); err != nil {
		return nil, fmt.Errorf("ошибка десериализации JSON: %w", err)
	}

	return &slip, nil
}

// ListSlips возвращает ID кандидатов, для которых есть слип
func (a *Archive) ListSlips() ([]int64, error) {
	if _, err := os.Stat(a.dir); os.IsNotExist(err) {
		return []int64{}, nil
	}

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", a.dir, err)
	}

	ids := []int64{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || !strings.HasPrefix(name, "slip_") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, "slip_"), ".json"), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func slipFileName(candidateID int64) string {
	return fmt.Sprintf("slip_%d.json", candidateID)
}
