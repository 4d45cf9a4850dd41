package engine

import (
	"sort"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

// GradeMajor identifies one comparison group.
type GradeMajor struct {
	Grade string
	Major string
}

// Input carries everything one comparison computation needs. All collections
// are owned by the caller for the duration of the call; the engine reads
// them and nothing else.
type Input struct {
	// Classes to rank, already narrowed to the caller's grade/major scope.
	Classes []models.ClassInfo
	// KnownCombos lists every (grade, major) combination that must appear in
	// the output, even with no surviving class. Derived from the school's
	// class metadata by the caller.
	KnownCombos []GradeMajor
	// Enrollments links students to classes. A student enrolled in several
	// classes contributes their full course data to each of them.
	Enrollments []models.StudentEnrollment
	// Cells holds the raw session cells of all enrolled students, unfiltered.
	Cells []models.SessionCell
	// Weights maps course code to its resolved weight table.
	Weights map[string]models.WeightTable
	// Vahed maps course code to its credit weight.
	Vahed map[string]int
	// Year is the starting Jalali year of the school year to report on.
	Year int
	// Month restricts the computation to a single Jalali month (1..12);
	// nil selects full-year mode.
	Month *int
	// CourseCode restricts student overalls to a single course when set.
	CourseCode string
}

// Compare produces the full class-comparison statistics for one school.
func Compare(in Input) models.ComparisonResult {
	cells := FilterSchoolYear(in.Cells, in.Year)
	fullYear := in.Month == nil

	classStudents := studentsByClass(in.Enrollments)
	cellsByStudent := make(map[string][]models.SessionCell)
	for _, cell := range cells {
		cellsByStudent[cell.StudentCode] = append(cellsByStudent[cell.StudentCode], cell)
	}

	groups := make(map[GradeMajor][]models.ClassStats)
	for _, combo := range in.KnownCombos {
		groups[combo] = []models.ClassStats{}
	}

	for _, class := range in.Classes {
		students := make([]models.StudentOverall, 0, len(classStudents[class.ClassCode]))
		for _, studentCode := range classStudents[class.ClassCode] {
			students = append(students, studentOverall(studentCode, cellsByStudent[studentCode], in, fullYear))
		}
		stats := ClassStatsOf(class, students, fullYear)
		combo := GradeMajor{Grade: class.Grade, Major: class.Major}
		groups[combo] = append(groups[combo], stats)
	}

	result := models.ComparisonResult{
		Groups:        make([]models.ComparisonGroup, 0, len(groups)),
		SelectedYear:  in.Year,
		SelectedMonth: in.Month,
	}
	for combo, classes := range groups {
		sortClasses(classes)
		result.Groups = append(result.Groups, models.ComparisonGroup{
			Grade:   combo.Grade,
			Major:   combo.Major,
			Classes: classes,
		})
	}
	sort.Slice(result.Groups, func(i, j int) bool {
		if result.Groups[i].Grade != result.Groups[j].Grade {
			return result.Groups[i].Grade < result.Groups[j].Grade
		}
		return result.Groups[i].Major < result.Groups[j].Major
	})
	return result
}

// BuildCatalog lists the known (grade, major) combinations of a school with
// the classes belonging to each and the courses that recorded data during
// the selected school year.
func BuildCatalog(classes []models.ClassInfo, enrollments []models.StudentEnrollment, cells []models.SessionCell, year int, month *int) models.Catalog {
	cells = FilterSchoolYear(cells, year)

	classByCode := make(map[string]models.ClassInfo, len(classes))
	for _, class := range classes {
		classByCode[class.ClassCode] = class
	}

	comboClasses := make(map[GradeMajor][]string)
	comboCourses := make(map[GradeMajor]map[string]bool)
	for _, class := range classes {
		combo := GradeMajor{Grade: class.Grade, Major: class.Major}
		comboClasses[combo] = append(comboClasses[combo], class.ClassCode)
		if comboCourses[combo] == nil {
			comboCourses[combo] = make(map[string]bool)
		}
	}

	studentClasses := make(map[string][]string)
	for _, e := range enrollments {
		studentClasses[e.StudentCode] = append(studentClasses[e.StudentCode], e.ClassCode)
	}
	for _, cell := range cells {
		if cell.CourseCode == "" {
			continue
		}
		for _, classCode := range studentClasses[cell.StudentCode] {
			class, ok := classByCode[classCode]
			if !ok {
				continue
			}
			combo := GradeMajor{Grade: class.Grade, Major: class.Major}
			if comboCourses[combo] != nil {
				comboCourses[combo][cell.CourseCode] = true
			}
		}
	}

	catalog := models.Catalog{
		Combinations:  make([]models.CatalogEntry, 0, len(comboClasses)),
		SelectedYear:  year,
		SelectedMonth: month,
	}
	for combo, classCodes := range comboClasses {
		courses := make([]string, 0, len(comboCourses[combo]))
		for code := range comboCourses[combo] {
			courses = append(courses, code)
		}
		sort.Strings(classCodes)
		sort.Strings(courses)
		catalog.Combinations = append(catalog.Combinations, models.CatalogEntry{
			Grade:   combo.Grade,
			Major:   combo.Major,
			Classes: classCodes,
			Courses: courses,
		})
	}
	sort.Slice(catalog.Combinations, func(i, j int) bool {
		a, b := catalog.Combinations[i], catalog.Combinations[j]
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		return a.Major < b.Major
	})
	return catalog
}

func studentOverall(studentCode string, cells []models.SessionCell, in Input, fullYear bool) models.StudentOverall {
	byCourse := make(map[string][]models.SessionCell)
	for _, cell := range cells {
		if cell.CourseCode == "" {
			continue
		}
		byCourse[cell.CourseCode] = append(byCourse[cell.CourseCode], cell)
	}

	courses := make([]models.CourseAverage, 0, len(byCourse))
	perCourseMonthly := make(map[string][12]*float64, len(byCourse))
	for courseCode, courseCells := range byCourse {
		weights := in.Weights[courseCode]
		if weights == nil {
			weights = FallbackWeights()
		}
		scores := BucketByMonth(courseCells).MonthlyScores(weights)
		courses = append(courses, models.CourseAverage{
			CourseCode: courseCode,
			Average:    CourseAverage(scores, in.Month),
			Vahed:      in.Vahed[courseCode],
		})
		if fullYear {
			var monthly [12]*float64
			for m := 0; m < 12; m++ {
				monthly[m] = scores[m].FinalScore
			}
			perCourseMonthly[courseCode] = monthly
		}
	}

	overall := models.StudentOverall{
		StudentCode: studentCode,
		Overall:     OverallAverage(courses, in.CourseCode),
	}
	if fullYear && in.CourseCode == "" {
		series := MonthlyOverallSeries(perCourseMonthly, in.Vahed)
		overall.Monthly = &series
	} else if fullYear {
		if monthly, ok := perCourseMonthly[in.CourseCode]; ok {
			overall.Monthly = &monthly
		}
	}
	return overall
}

func studentsByClass(enrollments []models.StudentEnrollment) map[string][]string {
	seen := make(map[models.StudentEnrollment]bool, len(enrollments))
	byClass := make(map[string][]string)
	for _, e := range enrollments {
		if e.StudentCode == "" || e.ClassCode == "" || seen[e] {
			continue
		}
		seen[e] = true
		byClass[e.ClassCode] = append(byClass[e.ClassCode], e.StudentCode)
	}
	return byClass
}

// sortClasses orders by descending average with nil averages last; ties fall
// back to class code so output order is deterministic.
func sortClasses(classes []models.ClassStats) {
	sort.SliceStable(classes, func(i, j int) bool {
		a, b := classes[i].ClassAverage, classes[j].ClassAverage
		switch {
		case a == nil && b == nil:
			return classes[i].ClassCode < classes[j].ClassCode
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return classes[i].ClassCode < classes[j].ClassCode
		}
	})
}
