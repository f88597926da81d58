package track

import "fmt"

// OrderedSet представляет упорядоченное множество треков с дедупликацией.
// Первое вхождение выигрывает: повторный Add с тем же ключом игнорируется,
// поэтому порядок добавления источников (сиды раньше похожих треков)
// определяет приоритет при коллизиях.
type OrderedSet struct {
	seen  map[string]struct{}
	items []Track
}

// NewOrderedSet создает пустое упорядоченное множество треков
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{seen: make(map[string]struct{})}
}

// Add добавляет трек, если его ключ еще не встречался
func (s *OrderedSet) Add(t Track) bool {
	key := t.Key()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, t)
	return true
}

// AddForced добавляет трек даже при совпадении ключа (для добивки ремикса
// до целевой длины исходными треками)
func (s *OrderedSet) AddForced(t Track) {
	key := t.Key()
	if _, ok := s.seen[key]; ok {
		key = fmt.Sprintf("%s::%d::force", key, len(s.items))
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, t)
}

// Contains проверяет наличие ключа в множестве
func (s *OrderedSet) Contains(key string) bool {
	_, ok := s.seen[key]
	return ok
}

// Len возвращает количество треков в множестве
func (s *OrderedSet) Len() int {
	return len(s.items)
}

// Items возвращает треки в порядке добавления
func (s *OrderedSet) Items() []Track {
	out := make([]Track, len(s.items))
	copy(out, s.items)
	return out
}
