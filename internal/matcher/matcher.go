package matcher

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Score возвращает схожесть двух строк по множествам токенов (0..100).
// Регистр, пунктуация и порядок слов на результат не влияют.
func Score(candidate, reference string) int {
	a := tokenSet(candidate)
	b := tokenSet(reference)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var sect, diffAB, diffBA []string
	for tok := range a {
		if _, ok := b[tok]; ok {
			sect = append(sect, tok)
		} else {
			diffAB = append(diffAB, tok)
		}
	}
	for tok := range b {
		if _, ok := a[tok]; !ok {
			diffBA = append(diffBA, tok)
		}
	}

	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	sectStr := joinSorted(sect)
	abStr := joinSorted(diffAB)
	baStr := joinSorted(diffBA)

	best := ratio(abStr, baStr)

	sectLen := runeLen(sectStr)
	if sectLen > 0 {
		abLen := runeLen(abStr)
		baLen := runeLen(baStr)

		// sect является префиксом "sect diff", поэтому indel-дистанция равна длине хвоста
		sectAB := 1 - float64(abLen+1)/float64(2*sectLen+1+abLen)
		sectBA := 1 - float64(baLen+1)/float64(2*sectLen+1+baLen)
		best = math.Max(best, math.Max(sectAB, sectBA))
	}

	return int(math.Round(best * 100))
}

// IsAccepted сообщает, набирает ли ответ порог хотя бы с одним из допустимых вариантов
func IsAccepted(candidate string, accepted []string, threshold int) bool {
	return BestScore(candidate, accepted) >= threshold
}

// BestScore возвращает максимальную оценку ответа среди допустимых вариантов
func BestScore(candidate string, accepted []string) int {
	best := 0
	for _, ref := range accepted {
		if s := Score(candidate, ref); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}

// Normalize приводит текст к виду, в котором он сравнивается
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)), " ")
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(Normalize(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func joinSorted(tokens []string) string {
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

// ratio: нормализованная indel-схожесть: 2*LCS / (len(a)+len(b))
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return float64(2*lcs(ra, rb)) / float64(total)
}

func lcs(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
