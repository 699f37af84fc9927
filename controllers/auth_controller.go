package controllers

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/middleware"
	"github.com/formlite/formlite-server/models"
	"github.com/formlite/formlite-server/utils"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type registerReq struct {
	Name     string `json:"name" binding:"required,min=1"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

func Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields", "error": err.Error()})
		return
	}

	if !emailRegex.MatchString(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email format"})
		return
	}

	var count int64
	config.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Email is already registered"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		internalError(c, err)
		return
	}

	role := req.Role
	if role != models.RoleAdmin {
		role = models.RoleUser
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		Role:     role,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		internalError(c, err)
		return
	}

	token, err := utils.GenerateToken(fmt.Sprint(user.ID), user.Role)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration complete",
		"user":    user,
		"token":   token,
	})
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	var user models.User
	if err := config.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	if !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email or password"})
		return
	}

	token, err := utils.GenerateToken(fmt.Sprint(user.ID), user.Role)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func Me(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.User)
	c.JSON(http.StatusOK, gin.H{"user": u})
}
