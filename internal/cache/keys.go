package cache

import "fmt"

const (
	KeyVisitsTotal = "visits:total"
)

func KeyResolved(shortURL string) string {
	return fmt.Sprintf("resolve:%s", shortURL)
}

func KeyVisitsByCompany(company string) string {
	if company == "" {
		company = "default"
	}
	return fmt.Sprintf("visits:company:%s", company)
}
