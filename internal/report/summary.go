package report

import (
	"sort"

	"github.com/rmartins/expense-audit/internal/domain"
)

// CategoryCount is one row of the by-category breakdown.
type CategoryCount struct {
	Category string
	Count    int
	Amount   float64
}

// EmployeeTotal is one row of the top-offenders breakdown.
type EmployeeTotal struct {
	Employee string
	Count    int
	Amount   float64
}

// Summary holds the aggregate view of one audit run.
type Summary struct {
	TotalFindings   int
	TotalAmount     float64
	DirectCount     int
	ContextualCount int
	ByCategory      []CategoryCount
	TopEmployees    []EmployeeTotal
}

// Summarize computes aggregate statistics over the consolidated findings.
// topN caps the employee breakdown; categories are ordered by count
// descending, then name, so the output is stable.
func Summarize(findings []domain.Finding, topN int) Summary {
	s := Summary{TotalFindings: len(findings)}

	byCategory := make(map[string]*CategoryCount)
	byEmployee := make(map[string]*EmployeeTotal)

	for _, f := range findings {
		s.TotalAmount += f.Amount
		switch f.Origin {
		case domain.OriginDirectViolation:
			s.DirectCount++
		case domain.OriginContextualFraud:
			s.ContextualCount++
		}

		cat := Classify(f)
		if c, ok := byCategory[cat]; ok {
			c.Count++
			c.Amount += f.Amount
		} else {
			byCategory[cat] = &CategoryCount{Category: cat, Count: 1, Amount: f.Amount}
		}

		if e, ok := byEmployee[f.Employee]; ok {
			e.Count++
			e.Amount += f.Amount
		} else {
			byEmployee[f.Employee] = &EmployeeTotal{Employee: f.Employee, Count: 1, Amount: f.Amount}
		}
	}

	for _, c := range byCategory {
		s.ByCategory = append(s.ByCategory, *c)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].Count != s.ByCategory[j].Count {
			return s.ByCategory[i].Count > s.ByCategory[j].Count
		}
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})

	for _, e := range byEmployee {
		s.TopEmployees = append(s.TopEmployees, *e)
	}
	sort.Slice(s.TopEmployees, func(i, j int) bool {
		if s.TopEmployees[i].Amount != s.TopEmployees[j].Amount {
			return s.TopEmployees[i].Amount > s.TopEmployees[j].Amount
		}
		return s.TopEmployees[i].Employee < s.TopEmployees[j].Employee
	})
	if topN > 0 && len(s.TopEmployees) > topN {
		s.TopEmployees = s.TopEmployees[:topN]
	}

	return s
}
