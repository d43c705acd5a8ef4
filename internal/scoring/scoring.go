// Package scoring вычисляет сырые оценки статей.
// Оценки лент и поисковых бэкендов несоизмеримы и сравниваются только после
// нормализации внутри своей группы.
package scoring

import (
	"math"
	"time"
)

// Пороги возраста статьи, общие для обеих формул.
const (
	bucketFresh = 6 * time.Hour
	bucketDay   = 24 * time.Hour
	bucketTwo   = 48 * time.Hour
	bucketThree = 72 * time.Hour
	bucketWeek  = 168 * time.Hour
)

const (
	// DescriptionBonus добавляется, если описание длиннее DescriptionThreshold.
	DescriptionBonus     = 8
	DescriptionThreshold = 100

	positionBonusMax  = 12
	positionBonusStep = 2

	undatedBase  = 30
	undatedStep  = 3
	undatedFloor = 5

	// CommentWeight - вес комментария в формуле вовлеченности.
	CommentWeight = 2
)

// recencyBuckets - оценка ленты по возрасту, от самых свежих к старым.
var recencyBuckets = []struct {
	below time.Duration
	score float64
}{
	{bucketFresh, 80},
	{bucketDay, 65},
	{bucketTwo, 50},
	{bucketThree, 40},
	{bucketWeek, 25},
}

const recencyFloor = 10

// engagementMultipliers - множители свежести для формулы вовлеченности.
var engagementMultipliers = []struct {
	below time.Duration
	mult  float64
}{
	{bucketFresh, 3},
	{bucketDay, 2.5},
	{bucketTwo, 2},
	{bucketThree, 1.5},
	{bucketWeek, 1},
}

const staleMultiplier = 0.5

// RecencyScore возвращает оценку свежести для статьи из ленты.
// Без даты используется позиция в ленте: чем раньше, тем выше, но не ниже undatedFloor.
func RecencyScore(publishedAt *time.Time, index int, now time.Time) float64 {
	if publishedAt == nil {
		return float64(max(undatedFloor, undatedBase-index*undatedStep))
	}
	age := now.Sub(*publishedAt)
	for _, b := range recencyBuckets {
		if age < b.below {
			return b.score
		}
	}
	return recencyFloor
}

// PositionBonus - небольшой убывающий бонус за раннюю позицию в исходной ленте.
func PositionBonus(index int) float64 {
	return float64(max(0, positionBonusMax-index*positionBonusStep))
}

// ComputeScore вычисляет сырую оценку статьи из RSS-ленты:
// свежесть (или позиция для статей без даты) плюс бонус за описание и бонус за позицию.
func ComputeScore(publishedAt *time.Time, index, descriptionLength int, now time.Time) float64 {
	score := RecencyScore(publishedAt, index, now)
	if descriptionLength > DescriptionThreshold {
		score += DescriptionBonus
	}
	return score + PositionBonus(index)
}

// RecencyMultiplier возвращает множитель свежести для формулы вовлеченности.
// Статья без даты получает нейтральный множитель 1.
func RecencyMultiplier(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil {
		return 1
	}
	age := now.Sub(*publishedAt)
	for _, m := range engagementMultipliers {
		if age < m.below {
			return m.mult
		}
	}
	return staleMultiplier
}

// EngagementScore вычисляет оценку для источников с метриками вовлеченности
// (Hacker News, Reddit): (points + comments*CommentWeight) * множитель свежести.
func EngagementScore(points, comments int, publishedAt *time.Time, now time.Time) float64 {
	engagement := float64(max(0, points) + max(0, comments)*CommentWeight)
	return math.Round(engagement*RecencyMultiplier(publishedAt, now)*100) / 100
}
