// Package kmeans clusters points with k-means++ seeding and Lloyd's refinement.
//
// Distance and center computation are pluggable through DistanceMetric and
// CenterCalculator; Euclidean and Mean are the defaults.
package kmeans
