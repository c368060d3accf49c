// Package errors はライブラリ全体のエラーハンドリングと警告システムを提供します。
// 型付きエラーと警告ハンドラを通じて、構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("MetaGo-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// これにより、ResultWarningなどのカスタム警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	// zerologが設定されている場合は優先的に使用
	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	// フォールバック: 従来のハンドラ
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ResultWarning は計算結果の信頼性に注意が必要な場合に発生する警告です。
// 例えば、メタツリー事後確率が数値的にほぼ縮退している場合など。
type ResultWarning struct {
	Operation string
	Message   string
}

func (w *ResultWarning) Error() string {
	return fmt.Sprintf("%s: %s", w.Operation, w.Message)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ResultWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("operation", w.Operation).
		Str("message", w.Message).
		Str("type", "ResultWarning")
}

// NewResultWarning は新しいResultWarningを作成します。
func NewResultWarning(operation, message string) *ResultWarning {
	return &ResultWarning{Operation: operation, Message: message}
}

// DataConversionWarning はデータの型が暗黙的に変換された場合に発生する警告です。
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s. Reason: %s", w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// ParameterFormatError はハイパーパラメータや定数の形式が不正な場合のエラーです。
// 確率ベクトルの和が1でない、停止確率が[0,1]の範囲外、候補リストと
// 重みベクトルの長さが一致しない、などの設定時エラーを表します。
type ParameterFormatError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ParameterFormatError) Error() string {
	return fmt.Sprintf("metago: invalid parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ParameterFormatError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ParameterFormatError")
}

// NewParameterFormatError は新しいParameterFormatErrorを作成し、スタックトレースを付与します。
func NewParameterFormatError(param, reason string, value interface{}) error {
	err := &ParameterFormatError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// DataFormatError は観測データの形式が不正な場合のエラーです。
// 特徴ベクトルの長さ違い、範囲外の特徴値などを、木構造に触れる前に検出します。
type DataFormatError struct {
	Op     string
	Reason string
	Value  interface{}
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("metago: %s: invalid data: %s (got: %v)", e.Op, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DataFormatError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "DataFormatError")
}

// NewDataFormatError は新しいDataFormatErrorを作成し、スタックトレースを付与します。
func NewDataFormatError(op, reason string, value interface{}) error {
	err := &DataFormatError{Op: op, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// StructuralMismatchError は参照トポロジーが現在の特徴量予算と矛盾する場合のエラーです。
// 例えば、経路上で既に使用済みの特徴量で再分割しようとするスケルトンなど。
type StructuralMismatchError struct {
	Op      string
	Feature int
	Depth   int
	Reason  string
}

func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("metago: %s: structural mismatch at depth %d (feature %d): %s",
		e.Op, e.Depth, e.Feature, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *StructuralMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("feature", e.Feature).
		Int("depth", e.Depth).
		Str("reason", e.Reason).
		Str("type", "StructuralMismatchError")
}

// NewStructuralMismatchError は新しいStructuralMismatchErrorを作成し、スタックトレースを付与します。
func NewStructuralMismatchError(op string, feature, depth int, reason string) error {
	err := &StructuralMismatchError{Op: op, Feature: feature, Depth: depth, Reason: reason}
	return errors.WithStack(err)
}

// CriteriaError はサポート外の損失関数・推定基準が要求された場合のエラーです。
// サイレントなフォールバックは行いません。
type CriteriaError struct {
	Op        string
	Criterion string
	Supported []string
}

func (e *CriteriaError) Error() string {
	return fmt.Sprintf("metago: %s: unsupported criterion %q (supported: %v)", e.Op, e.Criterion, e.Supported)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *CriteriaError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("criterion", e.Criterion).
		Strs("supported", e.Supported).
		Str("type", "CriteriaError")
}

// NewCriteriaError は新しいCriteriaErrorを作成し、スタックトレースを付与します。
func NewCriteriaError(op, criterion string, supported []string) error {
	err := &CriteriaError{Op: op, Criterion: criterion, Supported: supported}
	return errors.WithStack(err)
}

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("metago: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("metago: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf、オーバーフロー、アンダーフローなどを検出します。
type NumericalInstabilityError struct {
	Operation string                 // 発生した操作（例: "reweight", "update_posterior"）
	Values    []float64              // 問題のある値
	Context   map[string]interface{} // デバッグ用の追加コンテキスト情報
	Iteration int                    // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("metago: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
		Context:   make(map[string]interface{}),
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrEmptyEnsemble は候補メタツリーが一つも無い状態で
	// アンサンブル演算が要求された場合のエラーです。
	ErrEmptyEnsemble = New("empty metatree ensemble")
)
