// Package rank описывает таблицу рангов и вычисление уровня по опыту.
package rank

// Rank буквенный ранг игрока.
type Rank string

const (
	F     Rank = "F"
	E     Rank = "E"
	D     Rank = "D"
	C     Rank = "C"
	B     Rank = "B"
	A     Rank = "A"
	S     Rank = "S"
	SPlus Rank = "S+"
)

// ExperiencePerLevel опыт, необходимый для одного уровня.
const ExperiencePerLevel = 100

type threshold struct {
	rank Rank
	min  int
}

// порядок по возрастанию порога
var table = []threshold{
	{F, 0},
	{E, 500},
	{D, 1500},
	{C, 3000},
	{B, 5000},
	{A, 7500},
	{S, 10000},
	{SPlus, 15000},
}

// Progress положение игрока внутри текущего ранга.
type Progress struct {
	Rank             Rank    `json:"rank"`
	NextRank         Rank    `json:"next_rank,omitempty"`
	Level            int     `json:"level"`
	Experience       int     `json:"experience"`
	ExperienceInRank int     `json:"experience_in_rank"`
	ExperienceToNext int     `json:"experience_to_next"`
	Percent          float64 `json:"percent"`
}

// For возвращает наибольший ранг, порог которого не превышает exp.
func For(exp int) Rank {
	return table[index(exp)].rank
}

// Level уровень по опыту: exp/100 + 1.
func Level(exp int) int {
	if exp < 0 {
		exp = 0
	}
	return exp/ExperiencePerLevel + 1
}

// Threshold минимальный опыт ранга. Для неизвестного ранга ok=false.
func Threshold(r Rank) (int, bool) {
	for _, t := range table {
		if t.rank == r {
			return t.min, true
		}
	}
	return 0, false
}

// Compute считает прогресс внутри ранга. На максимальном ранге Percent = 100.
func Compute(exp int) Progress {
	if exp < 0 {
		exp = 0
	}
	i := index(exp)
	cur := table[i]
	p := Progress{
		Rank:             cur.rank,
		Level:            Level(exp),
		Experience:       exp,
		ExperienceInRank: exp - cur.min,
	}
	if i == len(table)-1 {
		p.Percent = 100
		return p
	}
	next := table[i+1]
	span := next.min - cur.min
	p.NextRank = next.rank
	p.ExperienceToNext = next.min - exp
	p.Percent = float64(p.ExperienceInRank) * 100 / float64(span)
	return p
}

func index(exp int) int {
	i := 0
	for j, t := range table {
		if exp >= t.min {
			i = j
		}
	}
	return i
}
