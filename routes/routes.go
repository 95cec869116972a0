package routes

import (
	"time"

	"unilib/app"
	"unilib/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	bookCtl := controllers.NewBookController(s)
	loanCtl := controllers.NewLoanController(s)
	reviewCtl := controllers.NewReviewController(s)
	notifCtl := controllers.NewNotificationController(s)
	userCtl := controllers.NewUserController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.Tokens, s.Repo)
	staffMW := app.StaffOnly()
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	// ------------------------------
	// 认证
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/register", authCtl.Register)
		auth.POST("/login", authCtl.Login)
	}
	authed := auth.Group("", authMW, seenMW)
	{
		authed.POST("/logout", authCtl.Logout)
		authed.GET("/me", authCtl.Me)
	}

	// ------------------------------
	// 图书目录：浏览公开，增删改仅馆员
	// ------------------------------
	books := r.Group("/api/books")
	{
		books.GET("", bookCtl.ListBooks) // ?page=&limit=&search=&category=&author=
		books.GET("/categories", bookCtl.ListCategories)
		books.GET("/:id", bookCtl.GetBook)
		books.GET("/:id/reviews", reviewCtl.ListBookReviews)
	}
	booksStaff := r.Group("/api/books", authMW, staffMW)
	{
		booksStaff.POST("", bookCtl.CreateBook)
		booksStaff.PUT("/:id", bookCtl.UpdateBook)
		booksStaff.DELETE("/:id", bookCtl.DeleteBook)
	}

	// ------------------------------
	// 借还
	// ------------------------------
	loans := r.Group("/api/loans", authMW, seenMW)
	{
		loans.GET("/me", loanCtl.ListMyLoans)
		loans.POST("", loanCtl.Borrow)
		loans.PATCH("/:id/return", loanCtl.Return)
		loans.PUT("/:id/extend", loanCtl.Renew)
	}
	loansStaff := r.Group("/api/loans", authMW, staffMW)
	{
		loansStaff.GET("", loanCtl.ListLoans) // ?status=active|returned|overdue&userId=&bookId=
	}

	// ------------------------------
	// 书评
	// ------------------------------
	reviews := r.Group("/api", authMW, seenMW)
	{
		reviews.POST("/books/:id/reviews", reviewCtl.CreateReview)
		reviews.DELETE("/reviews/:id", reviewCtl.DeleteReview)
	}
	reviewsStaff := r.Group("/api/reviews", authMW, staffMW)
	{
		reviewsStaff.PATCH("/:id/approve", reviewCtl.ApproveReview)
	}

	// ------------------------------
	// 通知
	// ------------------------------
	notifs := r.Group("/api/notifications", authMW, seenMW)
	{
		notifs.GET("", notifCtl.ListNotifications) // ?unread=1
		notifs.PATCH("/:id/read", notifCtl.MarkRead)
		notifs.POST("/read-all", notifCtl.MarkAllRead)
	}

	// ------------------------------
	// 用户管理（仅管理员）
	// ------------------------------
	users := r.Group("/api/users", authMW, adminMW)
	{
		users.GET("", userCtl.ListUsers) // ?q=&page=&size=
		users.GET("/:id", userCtl.GetUser)
		users.PATCH("/:id/role", userCtl.UpdateRole)
		users.DELETE("/:id", userCtl.DeleteUser)
	}
}
