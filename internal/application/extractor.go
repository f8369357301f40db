package app

import (
	"regexp"
	"strconv"
	"strings"

	"port-vision/internal/domain/entity"
)

const (
	KeywordConnected    = "connected"
	KeywordNotConnected = "n_connected"
)

var (
	portNumberPattern = regexp.MustCompile(`\d+`)

	// Ключевые слова проверяются по порядку, побеждает первое, найденное в любом месте метки.
	// "connected" входит в "n_connected", поэтому вторая альтернатива на практике не срабатывает.
	literalKeywords = []*regexp.Regexp{
		regexp.MustCompile(`(?i)` + KeywordConnected),
		regexp.MustCompile(`(?i)` + KeywordNotConnected),
	}

	// Строгий режим: самое левое совпадение, отрицательные формы перечислены первыми.
	strictKeyword = regexp.MustCompile(`(?i)(n_connected|not_connected|connected)`)
)

// LabelVote голос одной детекции: порт и распознанное ключевое слово
type LabelVote struct {
	Port    entity.PortNumber
	Keyword string
}

// Connected возвращает true, если детекция голосует за "connected"
func (v LabelVote) Connected() bool {
	return v.Keyword == KeywordConnected
}

// LabelParser разбирает имена классов модели вида "port3_connected".
type LabelParser struct {
	// StrictPolarity включает исправленное распознавание "n_connected"/"not_connected".
	// По умолчанию выключено: такие метки голосуют за "connected".
	StrictPolarity bool
}

// Parse извлекает номер порта (первое число в метке) и ключевое слово.
// Возвращает false, если чего-то не хватает или порт вне диапазона [1, 8].
func (p LabelParser) Parse(label string) (LabelVote, bool) {
	digits := portNumberPattern.FindString(label)
	if digits == "" {
		return LabelVote{}, false
	}
	keyword := p.keyword(label)
	if keyword == "" {
		return LabelVote{}, false
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return LabelVote{}, false
	}
	port := entity.PortNumber(n)
	if !port.Valid() {
		return LabelVote{}, false
	}

	return LabelVote{Port: port, Keyword: strings.ToLower(keyword)}, true
}

func (p LabelParser) keyword(label string) string {
	if p.StrictPolarity {
		return strictKeyword.FindString(label)
	}
	for _, re := range literalKeywords {
		if m := re.FindString(label); m != "" {
			return m
		}
	}
	return ""
}

// ExtractPorts строит таблицу портов по детекциям одной модели.
// Уверенность не учитывается: каждая подходящая детекция голосует одинаково.
// Нераспознанные метки молча пропускаются.
func ExtractPorts(result *entity.DetectionResult, parser LabelParser) entity.PortTable {
	table := entity.NewPortTable()
	if result == nil {
		return table
	}

	for _, d := range result.Detections {
		vote, ok := parser.Parse(d.Label)
		if !ok {
			continue
		}
		if vote.Connected() {
			table.MarkConnected(vote.Port)
		}
	}

	return table
}
