// Package metago provides Bayesian decision-tree ensembles (meta-trees) for
// Go, designed for online learning and real-time prediction services.
//
// A meta-tree model maintains a weighted ensemble of candidate tree
// topologies. Every node carries a conjugate leaf model and a stop weight, so
// posterior updates, prediction, and MAP tree estimation are all exact closed
// forms: there is no sampling loop and no iterative optimizer, which makes
// the model a natural fit for streaming data.
//
// # Installation
//
// Install MetaGo using go get:
//
//	go get github.com/kfurusho/metago
//
// # Quick Start
//
// Here's a simple example with the scikit-learn compatible classifier:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "github.com/kfurusho/metago/sklearn/ensemble"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    // Integer-coded binary features, labels in {0, 1}
//	    X := mat.NewDense(4, 2, []float64{0, 0, 0, 1, 1, 0, 1, 1})
//	    y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
//
//	    clf := ensemble.NewMetaTreeClassifier(ensemble.WithSeed(1))
//	    if err := clf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := clf.Predict(X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Predictions:", pred)
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - metatree: the core model (GenModel, LearnModel, MAP estimation)
//   - leaf: conjugate leaf-model families (Bernoulli, Poisson, Normal, Exponential)
//   - proposer: random-forest topology proposer
//   - sklearn/ensemble: scikit-learn compatible MetaTreeClassifier / MetaTreeRegressor
//   - metrics: evaluation metrics (MSE, RMSE, MAE, R², accuracy)
//   - core/model: estimator interfaces and base types
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: structured errors, warnings, and logging
//
// # Online Learning
//
// The learn model supports exact sequential updates: candidate trees are
// proposed once from an initial batch, after which every further observation
// is absorbed with a constant amount of work per tree:
//
//	p, err := lm.PredAndUpdate(x, y, leaf.LossSquared)
//
// All randomness is owned by the models themselves and seeded explicitly, so
// results are reproducible run to run.
//
// # License
//
// MetaGo is released under the MIT License.
package metago
