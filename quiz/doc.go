// Package quiz owns the catalog of multiple-choice items: random selection,
// grading with difficulty-weighted scores, and catalog maintenance.
//
// Scores awarded for a correct answer: low 1, medium 3, high 5.
package quiz
