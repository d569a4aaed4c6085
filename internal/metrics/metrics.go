// Package metrics computes dashboard statistics from the full task list.
// Everything here is pure: recomputed from scratch on each call, which is
// fine for per-user datasets of this size.
package metrics

import (
	"math"
	"time"

	"github.com/taskmind/taskmind/internal/model"
)

type Summary struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	InProgress     int `json:"in_progress"`
	Overdue        int `json:"overdue"`
	DueToday       int `json:"due_today"`
	CompletionRate int `json:"completion_rate"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type TrendDay struct {
	Date      string `json:"date"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

// Summarize counts the task list against now. Overdue means a deadline in
// the past on a task that is not completed; due-today compares calendar
// dates regardless of status.
func Summarize(tasks []model.Task, now time.Time) Summary {
	var s Summary
	s.Total = len(tasks)

	for _, task := range tasks {
		switch task.Status {
		case model.StatusCompleted:
			s.Completed++
		case model.StatusPending:
			s.Pending++
		case model.StatusInProgress:
			s.InProgress++
		}

		if task.Deadline != nil {
			if task.Deadline.Before(now) && task.Status != model.StatusCompleted {
				s.Overdue++
			}
			if sameDay(*task.Deadline, now) {
				s.DueToday++
			}
		}
	}

	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}

// CategoryBreakdown counts completed tasks per category, in order of first
// appearance in the task list.
func CategoryBreakdown(tasks []model.Task) []CategoryCount {
	index := make(map[string]int)
	var breakdown []CategoryCount

	for _, task := range tasks {
		if task.Status != model.StatusCompleted {
			continue
		}
		if i, ok := index[task.Category]; ok {
			breakdown[i].Count++
			continue
		}
		index[task.Category] = len(breakdown)
		breakdown = append(breakdown, CategoryCount{Category: task.Category, Count: 1})
	}
	return breakdown
}

// MostProductiveCategory returns the category with the most completed tasks.
// Ties go to the category encountered first; {"None", 0} when nothing is
// completed.
func MostProductiveCategory(tasks []model.Task) CategoryCount {
	best := CategoryCount{Category: "None"}
	for _, entry := range CategoryBreakdown(tasks) {
		if entry.Count > best.Count {
			best = entry
		}
	}
	return best
}

// PriorityDistribution buckets every task by priority, independent of status.
func PriorityDistribution(tasks []model.Task) PriorityCounts {
	var counts PriorityCounts
	for _, task := range tasks {
		switch task.Priority {
		case model.PriorityHigh:
			counts.High++
		case model.PriorityMedium:
			counts.Medium++
		case model.PriorityLow:
			counts.Low++
		}
	}
	return counts
}

// WeeklyTrend reports, for the 7 calendar days ending today (oldest first),
// how many tasks were created on each day and how many currently-completed
// tasks were last updated on each day. The completed series is a proxy, not
// a completion-event log: a task reopened and recompleted later moves to the
// later day.
func WeeklyTrend(tasks []model.Task, now time.Time) []TrendDay {
	trend := make([]TrendDay, 7)
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i-6)
		point := TrendDay{Date: day.Format("2006-01-02")}

		for _, task := range tasks {
			if sameDay(task.CreatedAt, day) {
				point.Created++
			}
			if task.Status == model.StatusCompleted && sameDay(task.UpdatedAt, day) {
				point.Completed++
			}
		}
		trend[i] = point
	}
	return trend
}

// AverageTaskDuration is the rounded mean of |deadline - created_at| in days
// over completed tasks that have a deadline; 0 when none qualify.
func AverageTaskDuration(tasks []model.Task) int {
	var total float64
	var count int
	for _, task := range tasks {
		if task.Status != model.StatusCompleted || task.Deadline == nil {
			continue
		}
		days := math.Abs(task.Deadline.Sub(task.CreatedAt).Hours() / 24)
		total += days
		count++
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(total / float64(count)))
}

// UpcomingDeadlines counts non-completed tasks due within the next 7 days,
// inclusive of both endpoints.
func UpcomingDeadlines(tasks []model.Task, now time.Time) int {
	horizon := now.AddDate(0, 0, 7)
	count := 0
	for _, task := range tasks {
		if task.Deadline == nil || task.Status == model.StatusCompleted {
			continue
		}
		if !task.Deadline.Before(now) && !task.Deadline.After(horizon) {
			count++
		}
	}
	return count
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
