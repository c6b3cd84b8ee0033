package recommend

import (
	"context"
	"fmt"
)

// ClusterAssignment es el cluster del usuario para este request; no se
// persiste, se recalcula con las estadísticas vivas de los ratings.
type ClusterAssignment struct {
	Cluster int   `json:"cluster"`
	Cold    bool  `json:"cold"`    // true: clasificado con el vector medio de la población
	Members []int `json:"members"` // usuarios con ratings en el mismo cluster, ordenados
}

// assignCluster hace una sola predicción batch sobre toda la población con
// ratings y lee la etiqueta del usuario. Si el usuario no tiene ratings se
// clasifica el vector medio de la población.
func (e *Engine) assignCluster(ctx context.Context, idx *index, userID int) (ClusterAssignment, error) {
	if len(idx.ratedUsers) == 0 {
		return ClusterAssignment{}, fmt.Errorf("assign cluster: %w: no hay usuarios con ratings", ErrInsufficientData)
	}

	matrix := make([][]float64, len(idx.ratedUsers))
	for i, uid := range idx.ratedUsers {
		vec, _ := ClusterFeatures(idx.history[uid].vals)
		matrix[i] = vec
	}

	labels, err := e.inf.PredictClusters(ctx, matrix)
	if err != nil {
		return ClusterAssignment{}, inferenceErr("predict clusters", err)
	}
	if len(labels) != len(matrix) {
		return ClusterAssignment{}, inferenceErr("predict clusters",
			fmt.Errorf("se esperaban %d etiquetas, llegaron %d", len(matrix), len(labels)))
	}

	out := ClusterAssignment{Cluster: -1}
	found := false
	for i, uid := range idx.ratedUsers {
		if uid == userID {
			out.Cluster = labels[i]
			found = true
			break
		}
	}

	if !found {
		centroid := meanVector(matrix)
		single, err := e.inf.PredictClusters(ctx, [][]float64{centroid})
		if err != nil {
			return ClusterAssignment{}, inferenceErr("predict cold cluster", err)
		}
		if len(single) != 1 {
			return ClusterAssignment{}, inferenceErr("predict cold cluster",
				fmt.Errorf("se esperaba 1 etiqueta, llegaron %d", len(single)))
		}
		out.Cluster = single[0]
		out.Cold = true
	}

	for i, uid := range idx.ratedUsers {
		if labels[i] == out.Cluster {
			out.Members = append(out.Members, uid)
		}
	}
	return out, nil
}

// meanVector: media elemento a elemento de las filas.
func meanVector(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, len(rows[0]))
	for _, r := range rows {
		for j, v := range r {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rows))
	}
	return out
}
