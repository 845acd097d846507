//==============================================================================
// clrun: Executable for exercising coniclifts compilation
// 01   Feb. 12, 2026   First version

package main

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	coniclifts "github.com/rabidsquirrel4/sageopt"
)

// modelFile is the YAML description of one SAGE membership model.
type modelFile struct {
	Name  string       `yaml:"name"`
	Alpha [][]float64  `yaml:"alpha"`
	C     []coeffEntry `yaml:"c"`
	Point []float64    `yaml:"point"`
}

// coeffEntry describes one coefficient: either a fixed constant or a free
// symbol.
type coeffEntry struct {
	Free  bool    `yaml:"free"`
	Value float64 `yaml:"value"`
}

//==============================================================================

// loadModel reads and validates a model file.
// In case of failure, function returns an error.
func loadModel(path string) (*modelFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read model file %s", path)
	}
	var model modelFile
	if err = yaml.Unmarshal(raw, &model); err != nil {
		return nil, errors.Wrapf(err, "failed to parse model file %s", path)
	}
	if len(model.Alpha) == 0 {
		return nil, errors.Errorf("model %s has an empty exponent matrix", path)
	}
	if len(model.C) != len(model.Alpha) {
		return nil, errors.Errorf("model %s has %d coefficients for %d exponent rows",
			path, len(model.C), len(model.Alpha))
	}
	n := len(model.Alpha[0])
	for i, row := range model.Alpha {
		if len(row) != n {
			return nil, errors.Errorf("model %s exponent row %d has %d entries, want %d",
				path, i, len(row), n)
		}
	}
	if model.Point != nil && len(model.Point) != len(model.C) {
		return nil, errors.Errorf("model %s point has %d entries for %d coefficients",
			path, len(model.Point), len(model.C))
	}
	return &model, nil
}

//==============================================================================

// buildConstraint turns the model description into a SAGE membership
// constraint, creating one free variable per free coefficient.
// In case of failure, function returns an error.
func buildConstraint(model *modelFile) (*coniclifts.PrimalOrdinarySageCone, *coniclifts.Variable, error) {
	m := len(model.C)
	n := len(model.Alpha[0])

	alpha := mat.NewDense(m, n, nil)
	for i, row := range model.Alpha {
		alpha.SetRow(i, row)
	}

	numFree := 0
	for _, entry := range model.C {
		if entry.Free {
			numFree++
		}
	}
	var freeVar *coniclifts.Variable
	var freeExpr coniclifts.Expression
	if numFree > 0 {
		freeVar = coniclifts.NewVariable(numFree, "c_free")
		freeExpr = freeVar.AsExpr()
	}

	entries := make([]coniclifts.Expression, m)
	next := 0
	for i, entry := range model.C {
		if entry.Free {
			entries[i] = sliceEntry(freeExpr, next)
			next++
		} else {
			entries[i] = coniclifts.ConstantScalar(entry.Value)
		}
	}
	c := coniclifts.Hstack(entries...)

	con, err := coniclifts.NewPrimalOrdinarySageCone(c, alpha, model.Name, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build SAGE constraint")
	}
	return con, freeVar, nil
}

// sliceEntry returns the size-1 expression holding entry i of e.
func sliceEntry(e coniclifts.Expression, i int) coniclifts.Expression {
	out := coniclifts.ConstantScalar(0)
	out.SetAt(0, e.At(i))
	return out
}

//==============================================================================

func main() {
	var modelPath string
	var verbose bool

	pflag.StringVar(&modelPath, "model", "", "path to the YAML model file")
	pflag.BoolVar(&verbose, "verbose", false, "enable debug logging")
	pflag.Parse()

	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if modelPath == "" {
		logger.Error("no model file given; use --model")
		os.Exit(2)
	}

	model, err := loadModel(modelPath)
	if err != nil {
		logger.Error("failed to load model", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("loaded model",
		zap.String("name", model.Name),
		zap.Int("terms", len(model.Alpha)),
		zap.Int("variables", len(model.Alpha[0])))

	con, freeVar, err := buildConstraint(model)
	if err != nil {
		logger.Error("failed to build constraint", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("presolve complete",
		zap.Ints("age_indices", con.Ech.UI),
		zap.Ints("trivial_indices", con.Ech.NI))

	prob := coniclifts.NewProblem(coniclifts.Minimize,
		coniclifts.ConstantScalar(0), []coniclifts.Constraint{con})

	var stats coniclifts.Statistics
	if err = prob.GetStatistics(&stats); err != nil {
		logger.Error("failed to compile model", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("compiled conic system",
		zap.Int("rows", stats.NumRows),
		zap.Int("cols", stats.NumCols),
		zap.Int("nonzeros", stats.NumElements),
		zap.Int("cones", stats.NumCones),
		zap.Int("zero_rows", stats.NumZeroRows),
		zap.Int("nonneg_rows", stats.NumNonnegRows),
		zap.Int("soc_rows", stats.NumSecondOrderRows),
		zap.Int("exp_rows", stats.NumExponentialRows))

	if model.Point == nil {
		return
	}
	if err = assignPoint(model, freeVar); err != nil {
		logger.Error("failed to assign point", zap.Error(err))
		os.Exit(1)
	}
	viol, err := con.Violation(math.Inf(1), true, "")
	if err != nil {
		logger.Warn("rough violation needs a registered solver for this point",
			zap.Error(err))
		return
	}
	logger.Info("rough violation at point", zap.Float64("violation", viol))
}

// assignPoint copies the free coordinates of the model's point onto the
// free variable, and checks fixed coordinates against their constants.
// In case of failure, function returns an error.
func assignPoint(model *modelFile, freeVar *coniclifts.Variable) error {
	var freeVals []float64
	for i, entry := range model.C {
		if entry.Free {
			freeVals = append(freeVals, model.Point[i])
		} else if model.Point[i] != entry.Value {
			return errors.Errorf("point entry %d is %v but coefficient is fixed at %v",
				i, model.Point[i], entry.Value)
		}
	}
	if freeVar == nil {
		return nil
	}
	return freeVar.SetValue(freeVals)
}
