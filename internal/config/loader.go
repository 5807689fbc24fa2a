package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"qualifier-bot/internal/matcher"
)

//go:embed script.yaml
var defaultScript []byte

var validate = validator.New()

// LoadScript загружает сценарий интервью из YAML файла.
// Пустой путь означает встроенный сценарий.
func LoadScript(filename string) (*Script, error) {
	data := defaultScript
	if filename != "" {
		var err error
		data, err = os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения файла %s: %w", filename, err)
		}
	}

	return ParseScript(data)
}

// ParseScript разбирает и валидирует сценарий
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML: %w", err)
	}

	if err := validateScript(&script); err != nil {
		return nil, fmt.Errorf("ошибка валидации сценария: %w", err)
	}

	return &script, nil
}

// validateScript проверяет корректность сценария
func validateScript(script *Script) error {
	if err := validate.Struct(script); err != nil {
		return err
	}

	// Проверяем ID вопросов: порядок в файле задает порядок интервью
	for i, q := range script.Questions {
		expectedID := i + 1
		if q.ID != expectedID {
			return fmt.Errorf("вопрос %d имеет неверный ID: ожидался %d, получен %d",
				i, expectedID, q.ID)
		}

		// Ответ без букв и цифр не дает токенов и не может совпасть
		for _, answer := range q.Answers {
			if matcher.Normalize(answer) == "" {
				return fmt.Errorf("вопрос %d: ответ %q не содержит букв или цифр", q.ID, answer)
			}
		}
	}

	if matcher.Normalize(script.FinalPhrase) == "" {
		return fmt.Errorf("финальная фраза %q не содержит букв или цифр", script.FinalPhrase)
	}

	return nil
}
