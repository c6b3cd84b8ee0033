// Package recommend es el núcleo de scoring del recomendador.
//
// Trabaja sobre un Snapshot inmutable (usuarios, películas y ratings leídos
// al inicio del request) y una capacidad de inferencia inyectada (kmeans /
// xgboost servidos por el model server). No toca Mongo ni Redis.
//
// Flujo de Recommend:
//
//	Snapshot -> features -> cluster (batch) -> peers (pearson) -> tier -> Rank
//
// Los tiers son excluyentes y se eligen en SelectTier:
//
//	T0 cold_system         no hay ratings en todo el store: score uniforme aleatorio
//	T1 global_popularity   usuario sin ratings o cluster vacío: mean*log1p(count) global
//	T2 cluster_popularity  usuario con 1-2 ratings: mean*log1p(count) del cluster
//	T3 collaborative       >=3 ratings y >=1 peer: promedio ponderado de peers
//	T3' no_peers           >=3 ratings sin peers: igual que T2
//
// RecommendProfile es un camino aparte (no es un tier): mezcla la
// probabilidad de "like" del clasificador con afinidad de cluster y géneros.
//
// Todo el azar sale de un PCG sembrado con (seed, userID), así que dos
// llamadas con el mismo snapshot devuelven la misma lista.
package recommend
