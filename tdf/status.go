package tdf

import "github.com/litian80/tcg-manager-sub000/models"

const (
	standingsTypeFinished = "finished"
	standingsTypeDNF      = "dnf"
)

// ClassifyStatus derives the lifecycle status from the standings section. A
// tournament is completed only when at least one non-dnf standings pod exists
// and every such pod is finished.
func ClassifyStatus(st *Standings) models.TournamentStatus {
	if st == nil {
		return models.StatusRunning
	}
	counted := 0
	for _, pod := range st.Pods {
		if pod.Type == standingsTypeDNF {
			continue
		}
		if pod.Type != standingsTypeFinished {
			return models.StatusRunning
		}
		counted++
	}
	if counted == 0 {
		return models.StatusRunning
	}
	return models.StatusCompleted
}
