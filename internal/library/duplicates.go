package library

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"spool/internal/models"
)

// Mode — критерий группировки дубликатов.
type Mode string

const (
	ModeHash Mode = "hash"
	ModeName Mode = "name"
	ModeSize Mode = "size"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHash, ModeName, ModeSize:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown groupBy mode: %q", s)
}

// Group — группа предполагаемых дубликатов. Members отсортированы по
// возрастанию ID (старший = первый импортированный), на этом порядке
// держится политика keep-oldest.
type Group struct {
	Key     string               `json:"group_key"`
	Reason  string               `json:"reason,omitempty"`
	Members []models.LibraryFile `json:"members"`
}

// Normalizer приводит имя файла к ключу сравнения для режима name.
// Правило "похожести" — настраиваемая политика, не зашитая константа.
type Normalizer func(string) string

var copySuffix = regexp.MustCompile(`(?i)[\s_-]*(\(\d+\)|copy(\s*\d+)?)$`)

// LooseNormalizer: без регистра, без расширения, без суффиксов вида
// " (1)" и "copy", без всего, кроме букв и цифр. Ловит "Benchy (1).stl"
// против "benchy.stl".
func LooseNormalizer(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = copySuffix.ReplaceAllString(base, "")
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExactNormalizer — только регистр и расширение.
func ExactNormalizer(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}

// GroupDuplicates группирует файлы по выбранному критерию. В выдаче
// только группы из ≥2 членов. Файлы без хэша в режиме hash не участвуют —
// отсутствие хэша не повод слить файлы в одну группу. Порядок групп
// детерминирован (по ключу), члены — по ID.
func GroupDuplicates(files []models.LibraryFile, mode Mode, normalize Normalizer) []Group {
	if normalize == nil {
		normalize = LooseNormalizer
	}

	buckets := map[string][]models.LibraryFile{}
	reasons := map[string]string{}
	for _, f := range files {
		var key string
		switch mode {
		case ModeHash:
			if f.ContentHash == "" {
				continue
			}
			key = f.ContentHash
		case ModeName:
			key = normalize(f.OriginalName)
			if key == "" {
				continue
			}
			reasons[key] = fmt.Sprintf("similar file names (normalized %q)", key)
		case ModeSize:
			key = fmt.Sprintf("%d", f.FileSizeBytes)
			reasons[key] = fmt.Sprintf("identical size (%d bytes)", f.FileSizeBytes)
		default:
			continue
		}
		buckets[key] = append(buckets[key], f)
	}

	keys := make([]string, 0, len(buckets))
	for k, members := range buckets {
		if len(members) >= 2 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		members := buckets[k]
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		groups = append(groups, Group{Key: k, Reason: reasons[k], Members: members})
	}
	return groups
}

// SelectForDeletion: оставить самый старый (минимальный ID, индекс 0
// после сортировки), пометить остальных. Чистая функция, идемпотентна.
// Это только предложение — удаление всегда за явным подтверждением.
func SelectForDeletion(g Group) []models.LibraryFile {
	if len(g.Members) < 2 {
		return nil
	}
	out := make([]models.LibraryFile, len(g.Members)-1)
	copy(out, g.Members[1:])
	return out
}

// SelectAllForDeletion — объединение SelectForDeletion по всем группам.
// Единственный оригинал группы не помечается никогда.
func SelectAllForDeletion(groups []Group) []models.LibraryFile {
	var out []models.LibraryFile
	for _, g := range groups {
		out = append(out, SelectForDeletion(g)...)
	}
	return out
}
